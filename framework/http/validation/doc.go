// Package validation provides Laravel-style input validation for request data
// and route parameters.
//
// Rules are pipe-separated strings keyed by field name:
//
//	v := validation.Make(req.All(), validation.Rules{
//	    "name":  "required|min:2|max:100",
//	    "email": "required|email",
//	    "id":    "integer|gt:0",
//	})
//
//	if v.Fails() {
//	    return res.ValidationError(v.Errors())
//	}
//
// Each field stops at its first failing rule, so a field carries at most one
// message. Rules run once per Validator; Fails, Passes and Validate can be
// called repeatedly.
//
// # Rules
//
// Length (counted in runes): required, min:n, max:n, size:n, between:a,b.
//
// Format: email, url (http or https), alpha, alpha_num, alpha_dash,
// regex:pattern.
//
// Numeric: numeric, integer, gt:n, gte:n, lt:n, lte:n.
//
// Comparison: confirmed (field_confirmation must match), same:other,
// different:other, in:a,b,c, not_in:a,b,c, boolean.
//
// Control: nullable skips the remaining rules when the value is empty.
// sometimes skips them when the field is absent.
//
// Unknown rule names are ignored. Known reports whether a name is supported.
//
// # Error Bag
//
// Errors marshals the same way as Laravel's validation errors:
//
//	{"errors": {"email": ["The email must be a valid email address."]}}
package validation
