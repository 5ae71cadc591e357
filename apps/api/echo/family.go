package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/klasshero/backend/core/family"
	"github.com/klasshero/backend/core/user"
)

type familyApi struct {
	svc    family.Service
	usrSvc user.Service
}

func registerFamilyAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc family.Service, usrSvc user.Service) {
	api := familyApi{svc: svc, usrSvc: usrSvc}

	pg := g.Group("/profile", jwt)
	pg.POST("", api.createProfile)
	pg.GET("", api.retrieveProfile, parentMiddleware())
	pg.PUT("/tier", api.changeTier, parentMiddleware())

	cg := g.Group("/children", jwt, parentMiddleware())
	cg.POST("", api.addChild)
	cg.GET("", api.queryChildren)
	cg.GET("/:id", api.retrieveChild)
	cg.PUT("/:id", api.updateChild)
	cg.DELETE("/:id", api.removeChild)
}

// profile returns the parent profile of the authenticated user.
func (api *familyApi) profile(ctx echo.Context) (family.ParentProfile, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return family.ParentProfile{}, errors.Wrap(err, "getting context claims")
	}
	return api.svc.GetProfileByUserID(ctx.Request().Context(), claims.Subject)
}

// ownChild fetches the child and enforces that it belongs to the
// authenticated parent; foreign children read as not found.
func (api *familyApi) ownChild(ctx echo.Context) (family.Child, error) {
	prof, err := api.profile(ctx)
	if err != nil {
		return family.Child{}, err
	}
	child, err := api.svc.GetChild(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return family.Child{}, err
	}
	if child.ParentID != prof.ID {
		return family.Child{}, family.ErrNotFound
	}
	return child, nil
}

// Handlers

func (api *familyApi) createProfile(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data NewProfileRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewProfileRequest")
	}

	np := family.NewParentProfile{UserID: claims.Subject, Tier: data.Tier, Phone: data.Phone}
	if err := np.Validate(); err != nil {
		return err
	}

	prof, err := api.svc.CreateProfile(ctx.Request().Context(), np)
	if err != nil {
		return errors.Wrap(err, "creating parent profile")
	}

	// the parent role comes with the profile
	usr, err := api.usrSvc.GetByID(ctx.Request().Context(), claims.Subject)
	if err == nil && !usr.IsParent() {
		_, _ = api.usrSvc.Update(ctx.Request().Context(), usr.ID, user.UpdateUser{Roles: append(usr.Roles, user.RoleParent)})
	}

	return ctx.JSON(http.StatusCreated, prof)
}

func (api *familyApi) retrieveProfile(ctx echo.Context) error {
	prof, err := api.profile(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, prof)
}

func (api *familyApi) changeTier(ctx echo.Context) error {
	var data ChangeTierRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ChangeTierRequest")
	}

	tier, err := family.ParseTier(data.Tier)
	if err != nil {
		return err
	}

	prof, err := api.profile(ctx)
	if err != nil {
		return err
	}
	prof, err = api.svc.ChangeTier(ctx.Request().Context(), prof.ID, tier)
	if err != nil {
		return errors.Wrap(err, "changing tier")
	}
	return ctx.JSON(http.StatusOK, prof)
}

func (api *familyApi) addChild(ctx echo.Context) error {
	prof, err := api.profile(ctx)
	if err != nil {
		return err
	}

	var data family.NewChild
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewChild")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	child, err := api.svc.AddChild(ctx.Request().Context(), prof.ID, data)
	if err != nil {
		return errors.Wrap(err, "adding child")
	}
	return ctx.JSON(http.StatusCreated, child)
}

func (api *familyApi) queryChildren(ctx echo.Context) error {
	prof, err := api.profile(ctx)
	if err != nil {
		return err
	}
	children, err := api.svc.QueryChildren(ctx.Request().Context(), prof.ID)
	if err != nil {
		return errors.Wrap(err, "querying children")
	}
	if children == nil {
		children = []family.Child{}
	}
	return ctx.JSON(http.StatusOK, children)
}

func (api *familyApi) retrieveChild(ctx echo.Context) error {
	child, err := api.ownChild(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, child)
}

func (api *familyApi) updateChild(ctx echo.Context) error {
	child, err := api.ownChild(ctx)
	if err != nil {
		return err
	}

	var data family.UpdateChild
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateChild")
	}
	if err := data.Validate(child); err != nil {
		return err
	}

	child, err = api.svc.UpdateChild(ctx.Request().Context(), child.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating child")
	}
	return ctx.JSON(http.StatusOK, child)
}

func (api *familyApi) removeChild(ctx echo.Context) error {
	child, err := api.ownChild(ctx)
	if err != nil {
		return err
	}
	if err := api.svc.RemoveChild(ctx.Request().Context(), child.ID); err != nil {
		return errors.Wrap(err, "removing child")
	}
	return ctx.NoContent(http.StatusNoContent)
}

type (
	NewProfileRequest struct {
		Tier  string `json:"tier"`
		Phone string `json:"phone"`
	}

	ChangeTierRequest struct {
		Tier string `json:"tier"`
	}
)
