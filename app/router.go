package main

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
)

func (app *application) routes() http.Handler {
	router := httprouter.New()

	router.NotFound = http.HandlerFunc(app.notFoundErrorResponse)
	router.MethodNotAllowed = http.HandlerFunc(app.methodNotAllowedErrorResponse)

	// identity service
	router.HandlerFunc(http.MethodPost, "/v1/users/signup", app.signupUserHandler)
	router.HandlerFunc(http.MethodPost, "/v1/users/login", app.loginUserHandler)
	router.HandlerFunc(http.MethodPost, "/v1/users/logout", app.requireAuthUser(app.logoutUserHandler))
	router.HandlerFunc(http.MethodPost, "/v1/users/apikey", app.requireAuthUser(app.generateAPIKeyHandler))

	// admin panel
	router.HandlerFunc(http.MethodGet, "/v1/admin/users", app.requireAdminUser(app.listUsersHandler))
	router.HandlerFunc(http.MethodPut, "/v1/admin/users/:id/role", app.requireAdminUser(app.toggleUserRoleHandler))

	// blog service
	router.HandlerFunc(http.MethodGet, "/v1/blogs", app.requireAuthUser(app.listBlogsHandler))
	router.HandlerFunc(http.MethodPost, "/v1/blogs", app.requireAuthUser(app.createBlogHandler))
	router.HandlerFunc(http.MethodGet, "/v1/blogs/:id", app.requireAuthUser(app.getBlogHandler))
	router.HandlerFunc(http.MethodPut, "/v1/blogs/:id", app.requireAuthUser(app.updateBlogHandler))
	router.HandlerFunc(http.MethodDelete, "/v1/blogs/:id", app.requireAuthUser(app.deleteBlogHandler))
	router.HandlerFunc(http.MethodGet, "/v1/blogs/:id/render", app.requireAuthUser(app.renderBlogHandler))

	// autosave edit sessions
	router.HandlerFunc(http.MethodPost, "/v1/blogs/:id/edit", app.requireAuthUser(app.openEditSessionHandler))
	router.HandlerFunc(http.MethodPut, "/v1/blogs/:id/edit", app.requireAuthUser(app.recordEditHandler))
	router.HandlerFunc(http.MethodDelete, "/v1/blogs/:id/edit", app.requireAuthUser(app.closeEditSessionHandler))

	// autosave settings
	router.HandlerFunc(http.MethodGet, "/v1/settings/autosave", app.requireAuthUser(app.getAutosaveSettingsHandler))
	router.HandlerFunc(http.MethodPut, "/v1/settings/autosave", app.requireAuthUser(app.updateAutosaveSettingsHandler))

	// public feed gateway
	router.HandlerFunc(http.MethodGet, "/v1/feed", app.rateLimitFeed(app.publicFeedHandler))

	router.HandlerFunc(http.MethodGet, "/v1/healthcheck", app.healthCheckHandler)

	return app.recoverPanic(app.logRequest(app.authenticate(router)))
}
