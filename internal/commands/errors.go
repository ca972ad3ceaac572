package commands

import (
	"errors"
	"io/fs"
	"unicode"
	"unicode/utf8"

	"github.com/allbin/go-serial-ide/internal/inventory"
	"github.com/allbin/go-serial-ide/internal/runner"
	"github.com/allbin/go-serial-ide/internal/session"
)

// Kind classifies command failures.
type Kind int

const (
	KindUnknown Kind = iota
	// KindNotFound covers absent ports, files, manifests and artifacts.
	KindNotFound
	// KindWrongState is an operation on a closed port.
	KindWrongState
	// KindOSResource is an open, spawn, wait, read or write failure.
	KindOSResource
	// KindEnumerationEmpty means no devices were found.
	KindEnumerationEmpty
	// KindInvalidArgument is a missing or malformed argument.
	KindInvalidArgument
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindWrongState:
		return "wrong_state"
	case KindOSResource:
		return "os_resource"
	case KindEnumerationEmpty:
		return "enumeration_empty"
	case KindInvalidArgument:
		return "invalid_argument"
	default:
		return "unknown"
	}
}

var (
	// ErrManifestNotFound is returned when the project manifest is missing.
	ErrManifestNotFound = errors.New("manifest not found")
	// ErrArtifactNotFound is returned when the firmware file is missing.
	ErrArtifactNotFound = errors.New("artifact not found")
	// ErrPathNotFound is returned when a path to open does not exist.
	ErrPathNotFound = errors.New("path not found")
	// ErrInvalidArgument is returned for empty required arguments.
	ErrInvalidArgument = errors.New("invalid argument")
)

// Error is the uniform failure returned by every command. Error() is the
// human-readable text shown to the user.
type Error struct {
	Op      string
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Err }

// KindOf reports the Kind of err, or KindUnknown.
func KindOf(err error) Kind {
	var cmdErr *Error
	if errors.As(err, &cmdErr) {
		return cmdErr.Kind
	}
	return classify(err)
}

func classify(err error) Kind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, session.ErrNoPortOpen):
		return KindWrongState
	case errors.Is(err, inventory.ErrNoPorts):
		return KindEnumerationEmpty
	case errors.Is(err, ErrInvalidArgument):
		return KindInvalidArgument
	case errors.Is(err, session.ErrPortNotFound),
		errors.Is(err, ErrManifestNotFound),
		errors.Is(err, ErrArtifactNotFound),
		errors.Is(err, ErrPathNotFound):
		return KindNotFound
	case errors.Is(err, session.ErrPortOpen),
		errors.Is(err, session.ErrEnumeration),
		errors.Is(err, session.ErrRead),
		errors.Is(err, session.ErrWrite),
		errors.Is(err, runner.ErrSpawn),
		errors.Is(err, runner.ErrWait),
		errors.Is(err, runner.ErrLaunch):
		return KindOSResource
	case errors.Is(err, fs.ErrNotExist):
		return KindNotFound
	case errors.Is(err, fs.ErrPermission):
		return KindOSResource
	default:
		var pathErr *fs.PathError
		if errors.As(err, &pathErr) {
			return KindOSResource
		}
		return KindUnknown
	}
}

// fail converts err into an *Error for op.
func fail(op string, err error) error {
	if err == nil {
		return nil
	}
	var cmdErr *Error
	if errors.As(err, &cmdErr) {
		return cmdErr
	}
	return &Error{Op: op, Kind: classify(err), Message: userMessage(err), Err: err}
}

// userMessage is err's text with its first letter capitalised, the form
// shown in the editor ("No port is open", "Failed to read file: ...").
func userMessage(err error) string {
	msg := err.Error()
	r, size := utf8.DecodeRuneInString(msg)
	if r == utf8.RuneError {
		return msg
	}
	return string(unicode.ToUpper(r)) + msg[size:]
}
