package http

// JSONException is an error rendered as a JSON response
type JSONException struct {
	*JSON
}

// NewJSONException creates an error whose response is data encoded as JSON
func NewJSONException(data any, status int) *JSONException {
	return &JSONException{JSON: NewJSON(data, status)}
}

// Error returns the encoded payload
func (e *JSONException) Error() string {
	body, err := e.Body()
	if err != nil {
		return "json response exception"
	}
	return string(body)
}

// Handle converts the error into a response
func (e *JSONException) Handle() any {
	resp := NewErrorResponse(e)
	if err := resp.Merge(e.JSON); err != nil {
		return err
	}
	return resp
}
