package middleware

import (
	"github.com/km-arc/go-micro/framework/container"
	"github.com/km-arc/go-micro/framework/http/validation"
	"github.com/km-arc/go-micro/framework/routing"
)

// Validate checks request input against validation rules before the handler
// runs.
type Validate struct {
	rules      validation.Rules
	paramsOnly bool
}

// ValidateParams validates the matched route parameters only.
//
//	middleware.ValidateParams(validation.Rules{"id": "required|integer|gt:0"})
func ValidateParams(rules validation.Rules) *Validate {
	return &Validate{rules: rules, paramsOnly: true}
}

// ValidateInput validates route parameters together with the query string
// and form body, when the request exposes them.
func ValidateInput(rules validation.Rules) *Validate {
	return &Validate{rules: rules}
}

// Handle implements routing.Middleware. Failures are answered with 422 and
// the error bag.
func (v *Validate) Handle(c *container.Container, req routing.Request, next routing.Next) error {
	data := req.Params()
	if all, ok := req.(interface{ All() map[string]string }); ok && !v.paramsOnly {
		data = all.All()
	}

	check := validation.Make(data, v.rules)
	if check.Passes() {
		return next()
	}
	res := response(c)
	if res == nil {
		return check.Errors()
	}
	return res.ValidationError(check.Errors())
}
