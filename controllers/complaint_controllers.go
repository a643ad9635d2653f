package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/steamybites/services"
	"github.com/yeremiapane/steamybites/utils"
)

type ComplaintController struct {
	complaints *services.ComplaintService
}

func NewComplaintController(complaints *services.ComplaintService) *ComplaintController {
	return &ComplaintController{complaints: complaints}
}

func (cc *ComplaintController) CreateComplaint(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var body struct {
		OrderID uint   `json:"orderId" binding:"required"`
		Message string `json:"message" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	complaint, err := cc.complaints.Create(c.Request.Context(), userID, body.OrderID, body.Message)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondData(c, http.StatusCreated, complaint)
}

func (cc *ComplaintController) GetMyComplaints(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	complaints, err := cc.complaints.ListForUser(c.Request.Context(), userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondData(c, http.StatusOK, complaints)
}

func (cc *ComplaintController) GetAllComplaints(c *gin.Context) {
	complaints, err := cc.complaints.ListAll(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondData(c, http.StatusOK, complaints)
}

func (cc *ComplaintController) UpdateComplaintStatus(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var body struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	complaint, err := cc.complaints.UpdateStatus(c.Request.Context(), id, body.Status)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondData(c, http.StatusOK, complaint)
}
