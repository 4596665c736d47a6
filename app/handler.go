package main

import (
	"errors"
	"net/http"

	"github.com/inkwell-cms/inkwell/internal/autosave"
	"github.com/inkwell-cms/inkwell/internal/blogservice"
	"github.com/inkwell-cms/inkwell/internal/common"
	"github.com/inkwell-cms/inkwell/internal/identityservice"
)

type signupUserRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (app *application) signupUserHandler(w http.ResponseWriter, r *http.Request) {
	var input signupUserRequest

	err := app.parseJSON(w, r, &input)
	if err != nil {
		app.badRequestErrorResponse(w, r, err)
		return
	}

	user, token, err := app.identityService.Signup(r.Context(), input.Username, input.Email, input.Password)
	if err != nil {
		switch {
		case errors.Is(err, identityservice.ErrDuplicateEmail):
			app.failedValidationErrorResponse(w, r, map[string]string{"email": "a user with this email address already exists"})
		case errors.Is(err, identityservice.ErrDuplicateUsername):
			app.failedValidationErrorResponse(w, r, map[string]string{"username": "this username is already taken"})
		case errors.As(err, &common.ValidationError{}):
			validationErr := err.(common.ValidationError)
			app.failedValidationErrorResponse(w, r, validationErr.Errors)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	err = app.writeJSON(w, http.StatusCreated, envelope{"user": user, "token": token}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}
}

type loginUserRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (app *application) loginUserHandler(w http.ResponseWriter, r *http.Request) {
	var input loginUserRequest

	err := app.parseJSON(w, r, &input)
	if err != nil {
		app.badRequestErrorResponse(w, r, err)
		return
	}

	user, token, err := app.identityService.Login(r.Context(), input.Email, input.Password)
	if err != nil {
		switch {
		case errors.Is(err, identityservice.ErrNotFound):
			app.invalidCredentialsErrorResponse(w, r)
		case errors.Is(err, identityservice.ErrAuthenticationFailure):
			app.invalidCredentialsErrorResponse(w, r)
		case errors.As(err, &common.ValidationError{}):
			validationErr := err.(common.ValidationError)
			app.failedValidationErrorResponse(w, r, validationErr.Errors)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"user": user, "token": token}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}
}

func (app *application) logoutUserHandler(w http.ResponseWriter, r *http.Request) {
	user := app.getUserContext(r)

	err := app.identityService.Logout(r.Context(), user.ID)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"message": "user logged out"}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}
}

func (app *application) generateAPIKeyHandler(w http.ResponseWriter, r *http.Request) {
	user := app.getUserContext(r)

	key, err := app.identityService.GenerateAPIKey(r.Context(), user.ID)
	if err != nil {
		switch {
		case errors.Is(err, identityservice.ErrNotFound):
			app.notFoundErrorResponse(w, r)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"api_key": key}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}
}

func (app *application) listUsersHandler(w http.ResponseWriter, r *http.Request) {
	users, err := app.identityService.ListUsers(r.Context())
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"users": users}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}
}

func (app *application) toggleUserRoleHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r, "id")
	if err != nil {
		app.badRequestErrorResponse(w, r, err)
		return
	}

	user, err := app.identityService.ToggleRole(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, identityservice.ErrNotFound):
			app.notFoundErrorResponse(w, r)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"user": user}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}
}

func (app *application) createBlogHandler(w http.ResponseWriter, r *http.Request) {
	var input blogservice.CreateBlogRequest

	err := app.parseJSON(w, r, &input)
	if err != nil {
		app.badRequestErrorResponse(w, r, err)
		return
	}

	user := app.getUserContext(r)

	// Author identity defaults to the logged-in user's profile.
	if input.AuthorName == "" {
		input.AuthorName = user.Username
	}
	if input.AuthorImage == "" {
		input.AuthorImage = user.Avatar
	}

	blog, err := app.blogService.CreateBlog(r.Context(), user.ID, &input)
	if err != nil {
		switch {
		case errors.As(err, &common.ValidationError{}):
			validationErr := err.(common.ValidationError)
			app.failedValidationErrorResponse(w, r, validationErr.Errors)
		case errors.Is(err, blogservice.ErrOwnerForeignKey):
			app.unAuthorizedErrorResponse(w, r)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	err = app.writeJSON(w, http.StatusCreated, envelope{"blog": blog}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}
}

func (app *application) getBlogHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r, "id")
	if err != nil {
		app.badRequestErrorResponse(w, r, err)
		return
	}

	user := app.getUserContext(r)

	blog, err := app.blogService.GetBlog(r.Context(), id, user.ID)
	if err != nil {
		switch {
		case errors.Is(err, blogservice.ErrRecordNotFound):
			app.notFoundErrorResponse(w, r)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"blog": blog}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}
}

func (app *application) updateBlogHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r, "id")
	if err != nil {
		app.badRequestErrorResponse(w, r, err)
		return
	}

	var patch blogservice.Patch
	err = app.parseJSON(w, r, &patch)
	if err != nil {
		app.badRequestErrorResponse(w, r, err)
		return
	}

	user := app.getUserContext(r)

	blog, err := app.blogService.UpdateBlog(r.Context(), id, user.ID, &patch)
	if err != nil {
		switch {
		case errors.Is(err, blogservice.ErrRecordNotFound):
			app.notFoundErrorResponse(w, r)
		case errors.As(err, &common.ValidationError{}):
			validationErr := err.(common.ValidationError)
			app.failedValidationErrorResponse(w, r, validationErr.Errors)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"blog": blog}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}
}

func (app *application) deleteBlogHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r, "id")
	if err != nil {
		app.badRequestErrorResponse(w, r, err)
		return
	}

	user := app.getUserContext(r)

	// Deleting an absent or foreign blog is a silent no-op, so teardown of
	// any open edit session happens unconditionally.
	app.autosaveManager.Close(user.ID, id)

	err = app.blogService.DeleteBlog(r.Context(), id, user.ID)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"message": "blog deleted"}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}
}

func (app *application) listBlogsHandler(w http.ResponseWriter, r *http.Request) {
	user := app.getUserContext(r)

	blogs, err := app.blogService.ListByOwner(r.Context(), user.ID)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"blogs": blogs}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}
}

func (app *application) renderBlogHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r, "id")
	if err != nil {
		app.badRequestErrorResponse(w, r, err)
		return
	}

	user := app.getUserContext(r)

	nodes, err := app.blogService.RenderBlog(r.Context(), id, user.ID)
	if err != nil {
		switch {
		case errors.Is(err, blogservice.ErrRecordNotFound):
			app.notFoundErrorResponse(w, r)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"nodes": nodes}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}
}

func (app *application) openEditSessionHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r, "id")
	if err != nil {
		app.badRequestErrorResponse(w, r, err)
		return
	}

	user := app.getUserContext(r)

	// Only an existing blog of this owner can carry an edit session.
	_, err = app.blogService.GetBlog(r.Context(), id, user.ID)
	if err != nil {
		switch {
		case errors.Is(err, blogservice.ErrRecordNotFound):
			app.notFoundErrorResponse(w, r)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	// The scheduler must outlive this request, so it runs on a background
	// context rather than r.Context().
	session, err := app.autosaveManager.Open(app.baseCtx, user.ID, id)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusCreated, envelope{"session": editSessionEnvelope(session)}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}
}

func (app *application) recordEditHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r, "id")
	if err != nil {
		app.badRequestErrorResponse(w, r, err)
		return
	}

	var patch blogservice.Patch
	err = app.parseJSON(w, r, &patch)
	if err != nil {
		app.badRequestErrorResponse(w, r, err)
		return
	}

	user := app.getUserContext(r)

	session, ok := app.autosaveManager.Session(user.ID, id)
	if !ok {
		app.notFoundErrorResponse(w, r)
		return
	}

	session.RecordEdit(&patch)

	err = app.writeJSON(w, http.StatusOK, envelope{"session": editSessionEnvelope(session)}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}
}

func (app *application) closeEditSessionHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r, "id")
	if err != nil {
		app.badRequestErrorResponse(w, r, err)
		return
	}

	user := app.getUserContext(r)

	app.autosaveManager.Close(user.ID, id)

	err = app.writeJSON(w, http.StatusOK, envelope{"message": "edit session closed"}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}
}

func editSessionEnvelope(s *autosave.Scheduler) envelope {
	e := envelope{
		"state": s.State(),
		"dirty": s.Dirty(),
	}

	if saved := s.LastSavedAt(); !saved.IsZero() {
		e["last_saved_at"] = saved
	}

	return e
}

func (app *application) getAutosaveSettingsHandler(w http.ResponseWriter, r *http.Request) {
	cfg := app.autosaveManager.Config()

	err := app.writeJSON(w, http.StatusOK, envelope{
		"enabled":          cfg.Enabled,
		"interval_seconds": cfg.IntervalSeconds,
		"preset":           cfg.IsPreset(),
		"presets":          autosave.PresetIntervals,
	}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}
}

type autosaveSettingsRequest struct {
	Enabled         bool `json:"enabled"`
	IntervalSeconds int  `json:"interval_seconds"`
}

func (app *application) updateAutosaveSettingsHandler(w http.ResponseWriter, r *http.Request) {
	var input autosaveSettingsRequest

	err := app.parseJSON(w, r, &input)
	if err != nil {
		app.badRequestErrorResponse(w, r, err)
		return
	}

	if input.IntervalSeconds <= 0 {
		app.failedValidationErrorResponse(w, r, map[string]string{"interval_seconds": "must be a positive number of seconds"})
		return
	}

	cfg := autosave.Config{Enabled: input.Enabled, IntervalSeconds: input.IntervalSeconds}
	app.autosaveManager.SetConfig(app.baseCtx, cfg)

	err = app.writeJSON(w, http.StatusOK, envelope{
		"enabled":          cfg.Enabled,
		"interval_seconds": cfg.IntervalSeconds,
		"preset":           cfg.IsPreset(),
	}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}
}

// The gateway reports auth failures in the body with HTTP 200, so external
// readers only ever branch on the success flag.
func (app *application) feedFailure(w http.ResponseWriter, r *http.Request, message string) {
	err := app.writeJSON(w, http.StatusOK, envelope{"success": false, "error": message}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}
}

func (app *application) publicFeedHandler(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("apiKey")
	if key == "" {
		app.feedFailure(w, r, "API key is required")
		return
	}

	user, err := app.identityService.UserByAPIKey(r.Context(), key)
	if err != nil {
		switch {
		case errors.Is(err, identityservice.ErrNotFound):
			app.feedFailure(w, r, "Invalid API key")
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	err = app.identityService.IncrementRequestCount(r.Context(), user.ID)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	blogs, err := app.blogService.ListPublished(r.Context())
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}
	if blogs == nil {
		blogs = []blogservice.Blog{}
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"success": true, "data": blogs}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}
}
