package analyse

import "net/http"

// RequestError is a client-facing failure. Status is the HTTP status to
// respond with; Code and Message go into the response envelope. The quota
// error deliberately ships as a 200 so share-extension clients that choke on
// non-2xx responses still render the message.
type RequestError struct {
	Code    int    `json:"code"`
	Status  int    `json:"-"`
	Message string `json:"message"`
}

func (e *RequestError) Error() string {
	return e.Message
}

var (
	ErrNoURL = &RequestError{
		Code:    http.StatusBadRequest,
		Status:  http.StatusBadRequest,
		Message: "No URL was found in the shared text.",
	}
	ErrContentFetch = &RequestError{
		Code:    http.StatusBadRequest,
		Status:  http.StatusBadRequest,
		Message: "We could not read the content behind that link.",
	}
	ErrModel = &RequestError{
		Code:    http.StatusInternalServerError,
		Status:  http.StatusInternalServerError,
		Message: "Something went wrong while analysing the link. Please try again.",
	}
	ErrModelEmpty = &RequestError{
		Code:    http.StatusInternalServerError,
		Status:  http.StatusInternalServerError,
		Message: "The analysis came back unreadable. Please try again.",
	}
	ErrInternal = &RequestError{
		Code:    http.StatusInternalServerError,
		Status:  http.StatusInternalServerError,
		Message: "Something went wrong. Please try again.",
	}
	ErrQuotaExceeded = &RequestError{
		Code:    http.StatusOK,
		Status:  http.StatusOK,
		Message: "We're glad you're enjoying Clarify! Please login to continue.",
	}
)
