package services

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/nadigross/userbase/internal/database"
	"github.com/nadigross/userbase/internal/dto"
)

type HealthService struct {
	db    *gorm.DB
	users *UserService
}

func NewHealthService(db *gorm.DB, users *UserService) *HealthService {
	return &HealthService{db: db, users: users}
}

// Check pings the store and counts users. It never fails; problems are
// reported in the response.
func (s *HealthService) Check(ctx context.Context) dto.HealthResponse {
	resp := dto.HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		DB:        "ok",
	}

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if err := database.Ping(ctx, s.db); err != nil {
		resp.Status = "degraded"
		resp.DB = "unhealthy: " + err.Error()
		return resp
	}

	if n, err := s.users.Count(ctx); err == nil {
		resp.Users = n
	}
	return resp
}
