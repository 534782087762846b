package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/boyeaalhagie/AI-Personal-Memory-Bank/internal/requestdata"
	"github.com/boyeaalhagie/AI-Personal-Memory-Bank/internal/services"
	"github.com/boyeaalhagie/AI-Personal-Memory-Bank/internal/types"
)

type PhotoHandler struct {
	photoService services.PhotoService
}

func NewPhotoHandler(photoService services.PhotoService) *PhotoHandler {
	return &PhotoHandler{photoService: photoService}
}

func (ph *PhotoHandler) Upload(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", fmt.Errorf("missing request data"))
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_upload", fmt.Errorf("file field required: %w", err))
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_upload", err)
		return
	}
	defer file.Close()

	photo, err := ph.photoService.UploadPhoto(c.Request.Context(), rd.UserID, services.UploadPhotoInput{
		Filename: fileHeader.Filename,
		MimeType: fileHeader.Header.Get("Content-Type"),
		Size:     fileHeader.Size,
		File:     file,
	})
	if err != nil {
		RespondError(c, http.StatusBadRequest, "upload_failed", err)
		return
	}
	c.JSON(http.StatusCreated, photo)
}

func (ph *PhotoHandler) List(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", fmt.Errorf("missing request data"))
		return
	}
	photos, err := ph.photoService.ListPhotos(c.Request.Context(), rd.UserID)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "list_failed", err)
		return
	}
	RespondOK(c, gin.H{"photos": photos, "count": len(photos)})
}

func (ph *PhotoHandler) Get(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", fmt.Errorf("missing request data"))
		return
	}
	photoID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}
	photo, err := ph.photoService.GetPhoto(c.Request.Context(), rd.UserID, photoID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			RespondError(c, http.StatusNotFound, "not_found", fmt.Errorf("photo not found"))
			return
		}
		RespondError(c, http.StatusInternalServerError, "get_failed", err)
		return
	}
	RespondOK(c, photo)
}

func (ph *PhotoHandler) Delete(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", fmt.Errorf("missing request data"))
		return
	}
	photoID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}
	if err := ph.photoService.DeletePhoto(c.Request.Context(), rd.UserID, photoID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			RespondError(c, http.StatusNotFound, "not_found", fmt.Errorf("photo not found"))
			return
		}
		RespondError(c, http.StatusInternalServerError, "delete_failed", err)
		return
	}
	RespondOK(c, gin.H{"message": "photo deleted"})
}

// Retag re-runs tagging for a photo that is failed or still unprocessed. If
// the photo is already tagged the stored result comes back unchanged.
func (ph *PhotoHandler) Retag(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", fmt.Errorf("missing request data"))
		return
	}
	photoID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}
	photo, err := ph.photoService.RetryTagging(c.Request.Context(), rd.UserID, photoID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			RespondError(c, http.StatusNotFound, "not_found", fmt.Errorf("photo not found"))
			return
		}
		var tagErr *services.TagError
		if errors.As(err, &tagErr) {
			status := http.StatusBadGateway
			if tagErr.Kind == types.TagErrContentUnavailable || tagErr.Kind == types.TagErrMalformedResponse {
				status = http.StatusUnprocessableEntity
			}
			c.JSON(status, gin.H{
				"error": gin.H{"message": tagErr.Detail, "code": tagErr.Kind},
				"photo": photo,
			})
			return
		}
		RespondError(c, http.StatusInternalServerError, "retag_failed", err)
		return
	}
	RespondOK(c, photo)
}

func (ph *PhotoHandler) Emotions(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", fmt.Errorf("missing request data"))
		return
	}
	result, err := ph.photoService.ListEmotions(c.Request.Context(), rd.UserID)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "emotions_failed", err)
		return
	}
	RespondOK(c, result)
}
