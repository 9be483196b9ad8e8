package main

import (
	"net/http"
	"os"

	"github.com/km-arc/go-micro/cmd"
	"github.com/km-arc/go-micro/framework/app"
	gohttp "github.com/km-arc/go-micro/framework/http"
	"github.com/km-arc/go-micro/framework/http/validation"
	"github.com/km-arc/go-micro/framework/inject"
	"github.com/km-arc/go-micro/framework/middleware"
	"github.com/km-arc/go-micro/framework/registry"
	"github.com/km-arc/go-micro/framework/routing"
)

func main() {
	setup := cmd.Setup{
		Catalog:   registry.NewCatalog(),
		Configure: routes,
	}
	if err := cmd.Execute(setup); err != nil {
		os.Exit(1)
	}
}

// respond is the parameter every demo handler uses to reach the response.
var respond = inject.Inject("res", middleware.ResponseKey)

func res(a inject.Args) *gohttp.Response { return a.Value("res").(*gohttp.Response) }

func routes(application *app.Application) error {
	r := application.Router()
	r.RegisterMiddleware("numeric-id", middleware.ValidateParams(validation.Rules{
		"id": "required|integer|gte:1",
	}))

	// ── Basic routes ─────────────────────────────────────────────────────────

	r.Get("/", inject.Action(func(a inject.Args) error {
		return res(a).Success(map[string]any{"message": "Welcome to Go-Micro!"})
	}, respond))

	// ── Route prefix ─────────────────────────────────────────────────────────

	r.Prefix("/api/v1", func(api *routing.Router) {
		api.Get("/users", inject.Action(func(a inject.Args) error {
			return res(a).Success([]map[string]any{
				{"id": 1, "name": "Alice"},
				{"id": 2, "name": "Bob"},
			})
		}, respond))

		api.Post("/users", inject.Action(func(a inject.Args) error {
			request := a.Value("req").(*gohttp.Request)
			var body struct {
				Name  string `json:"name"`
				Email string `json:"email"`
				Age   string `json:"age"`
			}
			if err := request.Bind(&body); err != nil {
				return res(a).Error(http.StatusBadRequest, err.Error())
			}

			v := validation.Make(map[string]string{
				"name":  body.Name,
				"email": body.Email,
				"age":   body.Age,
			}, validation.Rules{
				"name":  "required|min:2|max:100",
				"email": "required|email",
				"age":   "required|numeric|gte:18",
			})
			if v.Fails() {
				return res(a).ValidationError(v.Errors())
			}
			return res(a).Created(map[string]any{"name": body.Name, "email": body.Email})
		}, respond, inject.Inject("req", "request")))

		api.Get("/users/{id}", inject.Action(func(a inject.Args) error {
			return res(a).Success(map[string]any{"id": a.String("id")})
		}, respond, inject.Named("id")), "numeric-id")
	}, "throttle")

	// ── Protected ─────────────────────────────────────────────────────────────

	r.Group([]string{"auth"}, func(protected *routing.Router) {
		protected.Get("/profile", inject.Action(func(a inject.Args) error {
			return res(a).Success(map[string]any{"token": a.String("token")})
		}, respond, inject.Inject("token", middleware.TokenKey)))
	})
	return nil
}
