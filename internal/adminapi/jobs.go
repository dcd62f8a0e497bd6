package adminapi

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/talkincode/webshop/internal/app"
	"github.com/talkincode/webshop/internal/webserver"
)

func registerJobRoutes() {
	webserver.ApiGET("/jobs", ListJobs)
	webserver.ApiPOST("/jobs/:name/run", TriggerJob)
}

// ListJobs lists the background jobs and their next run time
func ListJobs(c echo.Context) error {
	return ok(c, GetAppContext(c).Jobs())
}

// TriggerJob runs a background job immediately
func TriggerJob(c echo.Context) error {
	err := GetAppContext(c).RunJobNow(c.Param("name"))
	if errors.Is(err, app.ErrUnknownJob) {
		return fail(c, http.StatusNotFound, "JOB_NOT_FOUND", "Job not found", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "RUN_FAILED", "Failed to run job", err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}
