package goSession

import (
	"bytes"
	"encoding/json"
	"io"
	"mime"
	"net/http"

	"github.com/google/uuid"

	"github.com/MrEthical07/goSession/internal"
)

// maxJSONTokenBody bounds how much of a JSON body is buffered to find the token.
const maxJSONTokenBody = 1 << 20

// TokenExtractor returns the session token carried by r, or "" when there is none.
type TokenExtractor func(r *http.Request) string

// TokenGenerator mints a token for Generate.
type TokenGenerator func() (string, error)

// RandomTokenGenerator returns a 40 character alphanumeric token from crypto/rand.
func RandomTokenGenerator() (string, error) {
	return internal.NewToken(internal.TokenSize)
}

// UUIDGenerator returns a random (version 4) UUID string.
func UUIDGenerator() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// DefaultTokenExtractor reads key from the query string, then from an url-encoded or
// multipart form body, then from a top-level string field of a JSON object body. A
// consumed JSON body is restored so downstream handlers can read it again.
func DefaultTokenExtractor(key string) TokenExtractor {
	return func(r *http.Request) string {
		if r == nil {
			return ""
		}
		if r.URL != nil {
			if token := r.URL.Query().Get(key); token != "" {
				return token
			}
		}
		if r.Body == nil || r.Body == http.NoBody {
			return ""
		}

		mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
		switch mediaType {
		case "application/x-www-form-urlencoded":
			if err := r.ParseForm(); err != nil {
				return ""
			}
			return r.PostForm.Get(key)
		case "multipart/form-data":
			if err := r.ParseMultipartForm(32 << 20); err != nil {
				return ""
			}
			return r.PostForm.Get(key)
		case "application/json":
			return jsonToken(r, key)
		default:
			return ""
		}
	}
}

func jsonToken(r *http.Request, key string) string {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxJSONTokenBody+1))
	rest := r.Body
	r.Body = readCloser{Reader: io.MultiReader(bytes.NewReader(body), rest), Closer: rest}
	if err != nil || len(body) > maxJSONTokenBody {
		return ""
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return ""
	}
	raw, ok := fields[key]
	if !ok {
		return ""
	}

	var token string
	if err := json.Unmarshal(raw, &token); err != nil {
		return ""
	}
	return token
}

type readCloser struct {
	io.Reader
	io.Closer
}

// Generate attaches a new empty session to r, replacing any current one. An empty token
// is minted with the Manager's TokenGenerator. The session is persisted when the
// response completes.
func Generate(r *http.Request, token string) (*Session, error) {
	if r == nil {
		return nil, ErrNoStore
	}
	if storeDown(r.Context()) {
		return nil, ErrStoreUnavailable
	}

	st := stateFromContext(r.Context())
	if st == nil {
		return nil, ErrNoStore
	}

	if token == "" {
		gen := RandomTokenGenerator
		if st.mgr != nil && st.mgr.generator != nil {
			gen = st.mgr.generator
		}

		var err error
		token, err = gen()
		if err != nil {
			return nil, err
		}
	}
	if !validToken(token) {
		return nil, ErrInvalidToken
	}

	s := newSession(st, token, nil)
	st.attach(token, s)
	st.metrics().Inc(MetricSessionGenerated)
	return s, nil
}

// validToken rejects empty tokens and tokens with whitespace or control bytes.
func validToken(token string) bool {
	if token == "" {
		return false
	}
	for i := 0; i < len(token); i++ {
		if c := token[i]; c <= ' ' || c == 0x7f {
			return false
		}
	}
	return true
}
