package model

type HttpError struct {
	Status    int
	Message   string
	RootError error
}

func (err *HttpError) Error() string {
	return err.Message
}

func (err *HttpError) GetRoot() error {
	return err.RootError
}

// error response format, following rfc-7807

type ProblemDetails struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
}
