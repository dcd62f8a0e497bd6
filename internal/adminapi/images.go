package adminapi

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/talkincode/webshop/internal/storage"
)

const imageField = "image"

// uploadImage stores the "image" form file. It returns an empty path when no
// file was sent and required is false.
func uploadImage(c echo.Context, required bool) (string, error) {
	fh, err := c.FormFile(imageField)
	if errors.Is(err, http.ErrMissingFile) || (err == nil && fh.Size == 0) {
		if required {
			return "", storage.ErrImageRequired
		}
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return GetAppContext(c).Images().SaveMultipart(fh)
}

func imageError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, storage.ErrImageRequired),
		errors.Is(err, storage.ErrUnsupportedImage),
		errors.Is(err, storage.ErrImageTooLarge):
		return fail(c, http.StatusBadRequest, "INVALID_IMAGE", err.Error(), map[string]string{imageField: err.Error()})
	}
	return fail(c, http.StatusInternalServerError, "UPLOAD_ERROR", "Failed to store image", err.Error())
}

// removeImage deletes a replaced or orphaned upload; failures are only logged.
func removeImage(c echo.Context, publicPath string) {
	if publicPath == "" {
		return
	}
	if err := GetAppContext(c).Images().Remove(publicPath); err != nil {
		zap.L().Warn("remove image failed",
			zap.String("path", publicPath),
			zap.Error(err),
			zap.String("namespace", "admin"))
	}
}
