package controller

import (
	"strconv"

	"codehosp/internal/study/service"
	verifymodel "codehosp/internal/verify/model"
	"codehosp/pkg/utils/response"

	"github.com/gin-gonic/gin"
)

// VerifyController exposes the verification endpoints.
type VerifyController struct {
	service *service.Service
}

// NewVerifyController creates a new controller.
func NewVerifyController(svc *service.Service) *VerifyController {
	return &VerifyController{service: svc}
}

// EnqueueVerification queues a verification run for a study.
func (h *VerifyController) EnqueueVerification(c *gin.Context) {
	studyID, ok := parseStudyID(c)
	if !ok {
		return
	}
	userID, _ := c.Get("user_id")
	uid, _ := userID.(int64)

	if err := h.service.Enqueue(c.Request.Context(), studyID, uid); err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMessage(c, "verification queued", gin.H{"study_id": studyID})
}

// GetVerification returns live progress for a study.
func (h *VerifyController) GetVerification(c *gin.Context) {
	studyID, ok := parseStudyID(c)
	if !ok {
		return
	}
	status, err := h.service.Status(c.Request.Context(), studyID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, status)
}

type inlineVerifyRequest struct {
	SourceCode     string `json:"source_code" binding:"required"`
	DatasetContent string `json:"dataset_content" binding:"required"`
	ExpectedOutput string `json:"expected_output" binding:"required"`
}

// VerifyInline runs the pipeline synchronously on request content and
// returns the raw verification result.
func (h *VerifyController) VerifyInline(c *gin.Context) {
	var req inlineVerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "source_code, dataset_content and expected_output are required")
		return
	}

	result, err := h.service.VerifyInline(c.Request.Context(), verifymodel.SubmissionRequest{
		SourceCode:     req.SourceCode,
		DatasetContent: req.DatasetContent,
		ExpectedOutput: req.ExpectedOutput,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

func parseStudyID(c *gin.Context) (int64, bool) {
	raw := c.Param("id")
	studyID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || studyID <= 0 {
		response.BadRequest(c, "Invalid study id")
		return 0, false
	}
	return studyID, true
}
