package errors

// Kind classifies an error code into the engine's failure taxonomy.
type Kind string

const (
	KindUnknown           Kind = "Unknown"
	KindInvalidKey        Kind = "InvalidKey"
	KindDecode            Kind = "DecodeError"
	KindInvalidCiphertext Kind = "InvalidCiphertext"
	KindIntegrity         Kind = "IntegrityError"
	KindDerive            Kind = "DeriveError"
	KindRange             Kind = "RangeError"
	KindEncrypt           Kind = "EncryptError"
	KindHTTP              Kind = "HTTP"
)

// Domain codes. HTTP status codes (100-599) stay usable as codes as well.
const (
	CodeInvalidKey        = 4001
	CodeDecode            = 4002
	CodeInvalidCiphertext = 4003
	CodeIntegrity         = 4004
	CodeDerive            = 5001
	CodeRange             = 5002
	CodeEncrypt           = 5003
)

var kinds = map[int]Kind{
	CodeInvalidKey:        KindInvalidKey,
	CodeDecode:            KindDecode,
	CodeInvalidCiphertext: KindInvalidCiphertext,
	CodeIntegrity:         KindIntegrity,
	CodeDerive:            KindDerive,
	CodeRange:             KindRange,
	CodeEncrypt:           KindEncrypt,
}

// KindOf returns the kind of a code.
func KindOf(code int) Kind {
	if k, ok := kinds[code]; ok {
		return k
	}
	if code >= 100 && code <= 599 {
		return KindHTTP
	}
	return KindUnknown
}

// IsKind reports whether any *Error in err's chain carries a code of kind k.
func IsKind(err error, k Kind) bool {
	for err != nil {
		if ge, ok := err.(*Error); ok && KindOf(ge.Code) == k {
			return true
		}
		err = Unwrap(err)
	}
	return false
}

// HTTPStatus maps a code to the HTTP status used when it crosses a transport.
func HTTPStatus(code int) int {
	switch KindOf(code) {
	case KindHTTP:
		return code
	case KindInvalidKey, KindDecode, KindInvalidCiphertext, KindIntegrity:
		return 400
	default:
		return 500
	}
}

func InvalidKey(format string, args ...any) *Error {
	return New(CodeInvalidKey, format, args...)
}

func Decode(format string, args ...any) *Error {
	return New(CodeDecode, format, args...)
}

func InvalidCiphertext(format string, args ...any) *Error {
	return New(CodeInvalidCiphertext, format, args...)
}

func Integrity(format string, args ...any) *Error {
	return New(CodeIntegrity, format, args...)
}

func Derive(format string, args ...any) *Error {
	return New(CodeDerive, format, args...)
}

func Range(format string, args ...any) *Error {
	return New(CodeRange, format, args...)
}

func Encrypt(format string, args ...any) *Error {
	return New(CodeEncrypt, format, args...)
}

// HTTP constructors for the transport and middleware layers.

func BadRequest(format string, args ...any) *Error { return New(400, format, args...) }

func Unauthorized(format string, args ...any) *Error { return New(401, format, args...) }

func NotFound(format string, args ...any) *Error { return New(404, format, args...) }

func TooManyRequests(format string, args ...any) *Error { return New(429, format, args...) }

func Internal(format string, args ...any) *Error { return New(500, format, args...) }

func BadRequestWithMetadata(metadata map[string]string, format string, args ...any) *Error {
	return NewWithMetadata(400, metadata, format, args...)
}
