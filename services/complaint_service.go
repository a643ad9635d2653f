package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/steamybites/models"
	"github.com/yeremiapane/steamybites/utils"
	"gorm.io/gorm"
)

type ComplaintService struct {
	db *gorm.DB
}

func NewComplaintService(db *gorm.DB) *ComplaintService {
	return &ComplaintService{db: db}
}

// Create files a complaint against one of the user's own orders.
func (s *ComplaintService) Create(ctx context.Context, userID, orderID uint, message string) (*models.Complaint, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, invalidf("Message is required")
	}
	if orderID == 0 {
		return nil, invalidf("Order id is required")
	}

	db := s.db.WithContext(ctx)

	var count int64
	err := db.Model(&models.Order{}).Where("id = ? AND user_id = ?", orderID, userID).Count(&count).Error
	if err != nil {
		return nil, fmt.Errorf("check order %d: %w", orderID, err)
	}
	if count == 0 {
		return nil, notFoundf("Order not found")
	}

	complaint := models.Complaint{
		UserID:  userID,
		OrderID: orderID,
		Message: message,
		Status:  models.ComplaintPending,
	}
	if err := db.Create(&complaint).Error; err != nil {
		return nil, fmt.Errorf("create complaint: %w", err)
	}

	utils.InfoLogger.WithFields(logrus.Fields{"complaint_id": complaint.ID, "order_id": orderID}).Info("complaint filed")
	return &complaint, nil
}

func (s *ComplaintService) ListForUser(ctx context.Context, userID uint) ([]models.Complaint, error) {
	complaints := []models.Complaint{}
	err := s.db.WithContext(ctx).
		Preload("Order").
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&complaints).Error
	if err != nil {
		return nil, fmt.Errorf("list complaints of user %d: %w", userID, err)
	}
	return complaints, nil
}

func (s *ComplaintService) ListAll(ctx context.Context) ([]models.Complaint, error) {
	complaints := []models.Complaint{}
	err := s.db.WithContext(ctx).
		Preload("User").
		Preload("Order").
		Order("created_at DESC, id DESC").
		Find(&complaints).Error
	if err != nil {
		return nil, fmt.Errorf("list complaints: %w", err)
	}
	return complaints, nil
}

// UpdateStatus sets the triage status of a complaint.
func (s *ComplaintService) UpdateStatus(ctx context.Context, id uint, status string) (*models.Complaint, error) {
	status = strings.TrimSpace(status)
	valid := false
	for _, st := range models.ComplaintStatuses {
		if st == status {
			valid = true
			break
		}
	}
	if !valid {
		return nil, invalidf("Status must be one of %s", strings.Join(models.ComplaintStatuses, ", "))
	}

	db := s.db.WithContext(ctx)

	var complaint models.Complaint
	err := db.First(&complaint, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFoundf("Complaint not found")
	}
	if err != nil {
		return nil, fmt.Errorf("find complaint %d: %w", id, err)
	}

	if err := db.Model(&complaint).Update("status", status).Error; err != nil {
		return nil, fmt.Errorf("update complaint %d: %w", id, err)
	}
	complaint.Status = status
	return &complaint, nil
}
