package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/nahomt/bookbridge/internal/dto"
	"github.com/nahomt/bookbridge/internal/logging"
	authmw "github.com/nahomt/bookbridge/internal/middleware/auth"
	"github.com/nahomt/bookbridge/internal/models"
	"github.com/nahomt/bookbridge/internal/service/images"
	"github.com/nahomt/bookbridge/internal/util"
)

type ImageHandler struct {
	DB    *gorm.DB
	Store *images.Store
}

const maxImageSize = 10 << 20 // 10 MiB

// UploadImage accepts a multipart cover upload for a book the caller owns.
func (h *ImageHandler) UploadImage(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "images.upload")

	userID, err := authmw.UserID(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	}
	if h.Store == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "image storage is not configured")
	}

	bookID := uint(util.ParseIntDefault(c.FormValue("bookId"), 0))
	if bookID == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "bookId is required")
	}

	var owned models.OwnedDetails
	if err := h.DB.WithContext(ctx).Where("book_id = ?", bookID).First(&owned).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "book not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot load book")
	}
	if owned.VendorID != userID {
		return echo.NewHTTPError(http.StatusForbidden, "only the vendor can upload a cover")
	}

	var count int64
	if err := h.DB.WithContext(ctx).Model(&models.Image{}).
		Where("book_id = ?", bookID).Count(&count).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot check existing cover")
	}
	if count > 0 {
		l.Warn("upload_rejected", "status", 409, "reason", "cover already exists", "book_id", bookID)
		return echo.NewHTTPError(http.StatusConflict, "book already has a cover")
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "file is required")
	}
	if fileHeader.Size > maxImageSize {
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, "file too large")
	}
	file, err := fileHeader.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "cannot read file")
	}
	defer file.Close()

	contentType := fileHeader.Header.Get("Content-Type")
	key, url, err := h.Store.Upload(ctx, fileHeader.Filename, file, contentType)
	if err != nil {
		l.Error("upload_failed", "status", 502, "book_id", bookID, "error", err)
		return echo.NewHTTPError(http.StatusBadGateway, "cannot store image")
	}

	img := models.Image{BookID: bookID, URL: url, Key: key}
	if err := h.DB.WithContext(ctx).Create(&img).Error; err != nil {
		// The object is already stored; drop it so a retry can succeed.
		if delErr := h.Store.Delete(ctx, key); delErr != nil {
			l.Warn("orphan_object", "key", key, "error", delErr)
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot save image")
	}

	return c.JSON(http.StatusCreated, dto.FromImage(img))
}

// DeleteImage removes a cover row and best-effort deletes the stored object.
func (h *ImageHandler) DeleteImage(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "images.delete")

	userID, err := authmw.UserID(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	}
	id, err := idParam(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid image id")
	}

	var img models.Image
	if err := h.DB.WithContext(ctx).First(&img, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "image not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot load image")
	}

	var owned models.OwnedDetails
	if err := h.DB.WithContext(ctx).Where("book_id = ?", img.BookID).First(&owned).Error; err == nil {
		if owned.VendorID != userID {
			return echo.NewHTTPError(http.StatusForbidden, "only the vendor can delete a cover")
		}
	}

	if err := h.DB.WithContext(ctx).Delete(&models.Image{}, img.ID).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot delete image")
	}
	if h.Store != nil {
		if err := h.Store.Delete(ctx, img.Key); err != nil {
			l.Warn("object_delete_failed", "key", img.Key, "error", err)
		}
	}
	return c.NoContent(http.StatusNoContent)
}
