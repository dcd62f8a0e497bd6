package adminapi

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/talkincode/webshop/internal/catalog"
	"github.com/talkincode/webshop/internal/webserver"
)

type chatReplyPayload struct {
	Message string `json:"message" validate:"required,max=500"`
}

// registerChatRoutes registers product chat support routes
func registerChatRoutes() {
	webserver.ApiGET("/chats", chatNotifications)
	webserver.ApiGET("/chats/:productId", chatThread)
	webserver.ApiPOST("/chats/:productId", replyChatMessage)
}

// chatNotifications lists the newest message of every product thread.
func chatNotifications(c echo.Context) error {
	messages, err := GetAppContext(c).CatalogService().ChatNotifications(c.Request().Context())
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query chat messages", err.Error())
	}
	return ok(c, messages)
}

// chatThread returns a product thread oldest first for the reply view.
func chatThread(c echo.Context) error {
	productId, err := parseIDParam(c, "productId")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid product ID", nil)
	}

	messages, err := GetAppContext(c).CatalogService().ChatThread(c.Request().Context(), productId)
	if errors.Is(err, catalog.ErrProductNotFound) {
		return fail(c, http.StatusNotFound, "PRODUCT_NOT_FOUND", "Product not found", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query chat messages", err.Error())
	}
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return ok(c, messages)
}

func replyChatMessage(c echo.Context) error {
	productId, err := parseIDParam(c, "productId")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid product ID", nil)
	}

	var payload chatReplyPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse message parameters", nil)
	}
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}

	msg, err := GetAppContext(c).CatalogService().SendChatMessage(c.Request().Context(), webserver.CurrentUserID(c), productId, payload.Message, true)
	switch {
	case errors.Is(err, catalog.ErrProductNotFound):
		return fail(c, http.StatusNotFound, "PRODUCT_NOT_FOUND", "Product not found", nil)
	case errors.Is(err, catalog.ErrInvalidMessage):
		return fail(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), map[string]string{"message": "required,max=500"})
	case err != nil:
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to send message", err.Error())
	}
	return ok(c, msg)
}
