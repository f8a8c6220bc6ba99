// Package controllers adapts HTTP requests to the services. Handlers bind
// and validate input, call one service method and answer through the
// response envelope.
package controllers

import (
	"github.com/artisanmart/storefront/app/services"
	"github.com/artisanmart/storefront/pkg/ctx"
	"github.com/artisanmart/storefront/pkg/orm"
	"github.com/artisanmart/storefront/pkg/response"
)

type AuthController struct {
	auth *services.AuthService
}

func NewAuthController(auth *services.AuthService) *AuthController {
	return &AuthController{auth: auth}
}

func (ac *AuthController) Register(c *ctx.Context) {
	var in services.RegisterInput
	if !c.BindJSON(&in) {
		return
	}
	session, err := ac.auth.Register(c.Context(), in)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Created("Account created", response.Payload{"user": session.User, "token": session.Token, "expiresAt": session.ExpiresAt})
}

func (ac *AuthController) Login(c *ctx.Context) {
	var in services.LoginInput
	if !c.BindJSON(&in) {
		return
	}
	session, err := ac.auth.Login(c.Context(), in)
	if err != nil {
		c.Fail(err)
		return
	}
	c.OK("Logged in", response.Payload{"user": session.User, "token": session.Token, "expiresAt": session.ExpiresAt})
}

func (ac *AuthController) Me(c *ctx.Context) {
	user, err := ac.auth.Me(c.Context(), c.UserID())
	if err != nil {
		c.Fail(err)
		return
	}
	c.OK("User fetched", response.Payload{"user": user})
}

func pageOf(c *ctx.Context) orm.Page {
	return orm.Page{Page: c.QueryInt("page", 1), PerPage: c.QueryInt("perPage", orm.DefaultPerPage)}.Normalize()
}

func paginated(p orm.Page, total int64) response.Pagination {
	return response.NewPagination(p.Page, p.PerPage, total)
}
