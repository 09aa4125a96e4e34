package middleware

import (
	"github.com/GriffinCanCode/conduit/internal/container"
	xhttp "github.com/GriffinCanCode/conduit/internal/http"
)

// RequestIDHeader carries the request id on responses
const RequestIDHeader = "X-Request-Id"

// RequestID stamps the response with the request id. An id sent by the
// client is echoed back.
func RequestID() container.Func {
	return container.Func{
		Name: "request-id",
		Params: []container.Param{
			container.Dep("request", xhttp.RequestType),
			container.Dep("response", xhttp.ResponseType),
		},
		Call: func(args container.Args) (any, error) {
			req := container.Arg[*xhttp.Request](args, 0)
			resp := container.Arg[*xhttp.Response](args, 1)
			if req == nil || resp == nil {
				return nil, nil
			}
			resp.SetHeader(RequestIDHeader, req.Header(RequestIDHeader, req.ID()), true)
			return nil, nil
		},
	}
}
