// Package http provides the request and response values the kernel binds into
// each per-request container.
//
// # Request
//
// Request wraps *http.Request and carries the parameters the router matched.
// It implements routing.ParamSetter, so Dispatch fills them in.
//
//	req := gohttp.NewRequest(r)
//
//	req.URI()            // "/users/7?tab=posts", what the router matches on
//	req.RouteParam("id") // "7"
//	req.All()            // query, body and route parameters
//	req.ID()             // chi RequestID, or a generated UUID
//
//	var payload struct {
//	    Name string `json:"name"`
//	}
//	if err := req.Bind(&payload); err != nil { ... }
//
//	token := req.BearerToken()
//	fh, err := req.File("avatar")
//
// # Response
//
// Response buffers status, headers and body until Send. Handlers write to it
// through the container and the kernel sends it after dispatch, unless a
// handler already did.
//
//	res.Success(data)         // 200 {"data": ...}
//	res.Created(data)         // 201 {"data": ...}
//	res.NoContent()           // 204
//	res.Error(400, "bad")     // {"message": "bad"}
//	res.Unauthorized()        // 401 {"message": "Unauthenticated."}
//	res.TooManyRequests()     // 429 {"message": "Too Many Attempts."}
//	res.ValidationError(errs) // 422 {"errors": {"field": ["msg"]}}
//	res.Redirect(http.StatusFound, "/dashboard")
//
// Send may be called once. A second call returns ErrAlreadySent.
package http
