package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/armahpen/backend-smilepill/internal/prescriptions"
	"github.com/armahpen/backend-smilepill/internal/stores/kafka"
	"github.com/armahpen/backend-smilepill/pkg/ctxmanage"
	"github.com/armahpen/backend-smilepill/pkg/logkey"
)

type submitPrescriptionRequest struct {
	PatientName      string   `json:"patient_name" validate:"required"`
	DoctorName       string   `json:"doctor_name" validate:"required"`
	PrescriptionDate string   `json:"prescription_date" validate:"required"`
	Medications      string   `json:"medications" validate:"required"`
	ImageURLs        []string `json:"image_urls"`
}

// SubmitPrescription files a prescription for the authenticated user. It
// always starts in pending regardless of what the client sends.
func (h *Handler) SubmitPrescription(c *gin.Context) {
	traceID := ctxmanage.GetTraceIdOfRequest(c)
	userID, ok := currentUserID(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req submitPrescriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if err := h.validate.Struct(req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Patient name, doctor name, prescription date and medications are required"})
		return
	}
	prescriptionDate, err := time.Parse("2006-01-02", req.PrescriptionDate)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Prescription date must be YYYY-MM-DD"})
		return
	}

	p, err := h.prescriptions.CreatePrescription(c.Request.Context(), prescriptions.NewPrescription{
		UserID:           userID,
		PatientName:      req.PatientName,
		DoctorName:       req.DoctorName,
		PrescriptionDate: prescriptionDate,
		Medications:      req.Medications,
		ImageURLs:        req.ImageURLs,
	})
	if err != nil {
		slog.Error("failed to create prescription", slog.String(logkey.TraceID, traceID),
			slog.String(logkey.UserID, userID), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to submit prescription"})
		return
	}

	slog.Info("prescription submitted", slog.String(logkey.TraceID, traceID),
		slog.String(logkey.UserID, userID), slog.String(logkey.PrescriptionID, p.ID))
	c.JSON(http.StatusCreated, gin.H{"message": "Prescription submitted for review", "prescription": p})
}

// ListMyPrescriptions returns the caller's own prescriptions, newest first.
func (h *Handler) ListMyPrescriptions(c *gin.Context) {
	traceID := ctxmanage.GetTraceIdOfRequest(c)
	userID, ok := currentUserID(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	list, err := h.prescriptions.GetPrescriptions(c.Request.Context(), &userID)
	if err != nil {
		slog.Error("failed to list prescriptions", slog.String(logkey.TraceID, traceID),
			slog.String(logkey.UserID, userID), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch prescriptions"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"prescriptions": list})
}

// ListPrescriptions is the admin review queue, optionally filtered to one
// user via ?userId=.
func (h *Handler) ListPrescriptions(c *gin.Context) {
	traceID := ctxmanage.GetTraceIdOfRequest(c)

	var userID *string
	if v := c.Query("userId"); v != "" {
		userID = &v
	}

	list, err := h.prescriptions.GetPrescriptions(c.Request.Context(), userID)
	if err != nil {
		slog.Error("failed to list prescriptions", slog.String(logkey.TraceID, traceID), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch prescriptions"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"prescriptions": list})
}

type reviewPrescriptionRequest struct {
	Status      string  `json:"status" validate:"required"`
	ReviewNotes *string `json:"review_notes"`
}

// ReviewPrescription records a verify/reject decision by the current admin.
func (h *Handler) ReviewPrescription(c *gin.Context) {
	traceID := ctxmanage.GetTraceIdOfRequest(c)
	reviewerID, ok := currentUserID(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	prescriptionID := c.Param("id")

	var req reviewPrescriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	status := prescriptions.Status(req.Status)
	if status != prescriptions.StatusVerified && status != prescriptions.StatusRejected {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Status must be verified or rejected"})
		return
	}

	err := h.prescriptions.UpdatePrescriptionStatus(c.Request.Context(), prescriptionID, status, req.ReviewNotes, reviewerID)
	if err != nil {
		if isNotFound(err) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Prescription not found"})
			return
		}
		slog.Error("failed to review prescription", slog.String(logkey.TraceID, traceID),
			slog.String(logkey.PrescriptionID, prescriptionID), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to review prescription"})
		return
	}

	if h.events != nil {
		payload, err := json.Marshal(kafka.PrescriptionReviewedEvent{
			PrescriptionID: prescriptionID,
			Status:         string(status),
			ReviewedBy:     reviewerID,
			CreatedAt:      time.Now().UTC(),
		})
		if err == nil {
			if err := h.events.ProduceMessage(kafka.TopicPrescriptionReviewed, []byte(prescriptionID), payload); err != nil {
				slog.Error("failed to publish prescription reviewed event", slog.String(logkey.TraceID, traceID),
					slog.String(logkey.PrescriptionID, prescriptionID), slog.String(logkey.ERROR, err.Error()))
			}
		}
	}

	slog.Info("prescription reviewed", slog.String(logkey.TraceID, traceID),
		slog.String(logkey.PrescriptionID, prescriptionID), slog.String("status", string(status)))
	c.JSON(http.StatusOK, gin.H{"message": "Prescription reviewed", "status": status})
}
