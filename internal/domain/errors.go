package domain

import (
	"errors"
	"fmt"
)

var (
	ErrValidation           = errors.New("validation error")
	ErrEmptyInput           = fmt.Errorf("%w: enter at least one feedback", ErrValidation)
	ErrBatchTooLarge        = fmt.Errorf("%w: batch size limit exceeded", ErrValidation)
	ErrParse                = errors.New("parse error")
	ErrNoFeedbacks          = errors.New("no valid feedbacks found")
	ErrEmptyResult          = errors.New("no successful outcomes")
	ErrConfirmationDeclined = errors.New("batch confirmation declined")
	ErrRunInProgress        = errors.New("a batch run is already in progress")
	ErrNotFound             = errors.New("not found")
)
