package service

import (
	"errors"

	dErrors "otapproval/pkg/domain-errors"
	"otapproval/pkg/platform/sentinel"
)

// wrapRequestErr translates store sentinels into coded errors. Coded errors
// from validate callbacks pass through unchanged.
func wrapRequestErr(err error, op string) error {
	if err == nil {
		return nil
	}
	if _, ok := dErrors.As(err); ok {
		return err
	}
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "request not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, op)
}
