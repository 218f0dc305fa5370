package inbound

import goerrors "github.com/goliatone/go-errors"

// errorText is the text placed in the "error" field of a response body.
func errorText(err error) string {
	if err == nil {
		return ""
	}
	var rich *goerrors.Error
	if goerrors.As(err, &rich) && rich.Source != nil {
		return rich.Source.Error()
	}
	return err.Error()
}
