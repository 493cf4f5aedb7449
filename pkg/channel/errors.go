package channel

import (
	"errors"
	"fmt"
	"slices"
)

var (
	ErrUnknownChannel   = errors.New("channel: unknown channel")
	ErrDuplicateChannel = errors.New("channel: channel already registered")
	ErrNoRecipients     = errors.New("channel: message has no recipients")
)

// DeliveryError carries the retry class of a transport failure.
type DeliveryError struct {
	Err       error
	Permanent bool
}

func (e *DeliveryError) Error() string {
	if e.Permanent {
		return "permanent delivery error: " + e.Err.Error()
	}
	return "transient delivery error: " + e.Err.Error()
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// Transient marks err as retryable. A nil err stays nil. An error already
// classified at the top level only has its class replaced.
func Transient(err error) error {
	return classify(err, false)
}

// Permanent marks err as not retryable. A nil err stays nil. An error already
// classified at the top level only has its class replaced.
func Permanent(err error) error {
	return classify(err, true)
}

func classify(err error, permanent bool) error {
	if err == nil {
		return nil
	}
	if de, ok := err.(*DeliveryError); ok { //nolint:errorlint // only the outermost class is replaced
		if de.Permanent == permanent {
			return de
		}
		err = de.Err
	}
	return &DeliveryError{Err: err, Permanent: permanent}
}

func unclassified(err error) error {
	if de, ok := err.(*DeliveryError); ok { //nolint:errorlint // only the outermost class is stripped
		return de.Err
	}
	return err
}

// IsPermanent reports whether err was classified as permanent.
func IsPermanent(err error) bool {
	var de *DeliveryError
	return errors.As(err, &de) && de.Permanent
}

// IsTransient reports whether err may succeed on retry. Errors that carry no
// classification count as transient.
func IsTransient(err error) bool {
	return err != nil && !IsPermanent(err)
}

// RecipientError is returned by a send to several recipients that did not
// reach all of them. Delivered got the message; Rejected failed permanently.
// Recipients in neither list failed transiently.
type RecipientError struct {
	Delivered []string
	Rejected  []string
	Err       error
}

func (e *RecipientError) Error() string {
	return fmt.Sprintf("delivered to %d, rejected by %d: %v", len(e.Delivered), len(e.Rejected), e.Err)
}

func (e *RecipientError) Unwrap() error {
	return e.Err
}

// Recipients returns the delivered and rejected recipients carried by err.
func Recipients(err error) (delivered, rejected []string) {
	var re *RecipientError
	if errors.As(err, &re) {
		return re.Delivered, re.Rejected
	}
	return nil, nil
}

// Fanout collects per-recipient results of one message sent to several
// recipients. The zero value is ready to use.
type Fanout struct {
	delivered []string
	rejected  []string
	errs      []error
	transient bool
}

// Delivered records a successful send to.
func (f *Fanout) Delivered(to string) {
	f.delivered = append(f.delivered, to)
}

// Failed records err for to. Unclassified errors count as transient.
func (f *Fanout) Failed(to string, err error) {
	if IsPermanent(err) {
		f.rejected = append(f.rejected, to)
	} else {
		f.transient = true
	}
	f.errs = append(f.errs, unclassified(err))
}

// Err returns nil when every recipient got the message. Otherwise the error is
// permanent only if every failure was, and carries the recipient lists.
func (f *Fanout) Err() error {
	if len(f.errs) == 0 {
		return nil
	}
	err := errors.Join(f.errs...)
	if f.transient {
		err = Transient(err)
	} else {
		err = Permanent(err)
	}
	return &RecipientError{
		Delivered: slices.Clone(f.delivered),
		Rejected:  slices.Clone(f.rejected),
		Err:       err,
	}
}
