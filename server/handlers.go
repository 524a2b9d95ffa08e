package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	goGrant "github.com/MrEthical07/goGrant"
	"github.com/MrEthical07/goGrant/envelope"
	"github.com/MrEthical07/goGrant/grant"
	"github.com/MrEthical07/goGrant/token"
)

type createRequest struct {
	// Algorithm and Secret are both omitted to sign with the engine keyring.
	Algorithm       string `json:"algorithm,omitempty" cbor:"algorithm,omitempty"`
	Secret          []byte `json:"secret,omitempty" cbor:"secret,omitempty"`
	LifetimeSeconds int64  `json:"lifetime_seconds" cbor:"lifetime_seconds"`
	Target          string `json:"target" cbor:"target"`
	Action          string `json:"action" cbor:"action"`
}

type verifyRequest struct {
	Token string `json:"token" cbor:"token"`
	// Candidates are tried in order. Omitted means the engine keyring.
	Candidates [][]byte `json:"candidates,omitempty" cbor:"candidates,omitempty"`
	// Algorithm binds every candidate to one algorithm. Empty follows the token header.
	Algorithm string `json:"algorithm,omitempty" cbor:"algorithm,omitempty"`
	Target    string `json:"target" cbor:"target"`
	Action    string `json:"action" cbor:"action"`
}

type claimsBody struct {
	Target    string    `json:"target" cbor:"target"`
	Action    string    `json:"action" cbor:"action"`
	IssuedAt  time.Time `json:"issued_at" cbor:"issued_at"`
	ExpiresAt time.Time `json:"expires_at" cbor:"expires_at"`
	ID        string    `json:"id,omitempty" cbor:"id,omitempty"`
	KeyID     string    `json:"kid,omitempty" cbor:"kid,omitempty"`
	Algorithm string    `json:"algorithm" cbor:"algorithm"`
}

type resultBody struct {
	OK     bool        `json:"ok" cbor:"ok"`
	Code   string      `json:"code,omitempty" cbor:"code,omitempty"`
	Error  string      `json:"error,omitempty" cbor:"error,omitempty"`
	Token  string      `json:"token,omitempty" cbor:"token,omitempty"`
	Claims *claimsBody `json:"claims,omitempty" cbor:"claims,omitempty"`
}

type handleBody struct {
	Handle string `json:"handle" cbor:"handle"`
}

type resultKind int

const (
	kindToken resultKind = iota
	kindClaims
)

func (s *Server) createToken(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := decodeBody(w, r, s.config.MaxBodyBytes, &req); err != nil {
		s.badRequest(w, r, err)
		return
	}

	ctx := clientContext(r)
	g := grant.New(req.Target, req.Action)
	var env *envelope.Envelope
	if req.Algorithm == "" && len(req.Secret) == 0 {
		env = s.engine.IssueEnvelope(ctx, req.LifetimeSeconds, g)
	} else {
		env = s.engine.CreateToken(ctx, req.Algorithm, req.Secret, req.LifetimeSeconds, g)
	}
	s.respond(w, r, env, kindToken)
}

func (s *Server) verifyToken(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := decodeBody(w, r, s.config.MaxBodyBytes, &req); err != nil {
		s.badRequest(w, r, err)
		return
	}

	ctx := clientContext(r)
	g := grant.New(req.Target, req.Action)
	var env *envelope.Envelope
	switch {
	case req.Candidates == nil:
		env = s.engine.VerifyEnvelope(ctx, req.Token, g)
	case req.Algorithm != "":
		env = s.engine.VerifyTokenAs(ctx, req.Token, req.Algorithm, req.Candidates, g)
	default:
		env = s.engine.VerifyToken(ctx, req.Token, req.Candidates, g)
	}
	s.respond(w, r, env, kindClaims)
}

// respond either parks env and answers with its handle, or renders and releases it.
func (s *Server) respond(w http.ResponseWriter, r *http.Request, env *envelope.Envelope, kind resultKind) {
	retain, _ := strconv.ParseBool(r.URL.Query().Get("retain"))
	if retain {
		h, err := s.engine.Retain(env)
		if err != nil {
			_ = s.engine.Release(r.Context(), env)
			if errors.Is(err, envelope.ErrTableFull) {
				writeBody(w, r, http.StatusServiceUnavailable, resultBody{Code: "results_full", Error: err.Error()})
				return
			}
			s.internalError(w, r, err)
			return
		}
		writeBody(w, r, http.StatusCreated, handleBody{Handle: h.String()})
		return
	}

	defer func() { _ = s.engine.Release(r.Context(), env) }()

	body, err := render(env, kind)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeBody(w, r, statusFor(env), body)
}

func render(env *envelope.Envelope, kind resultKind) (resultBody, error) {
	if !env.OK() {
		return resultBody{Code: string(env.Code()), Error: env.Err().Error()}, nil
	}
	payload, err := env.Payload()
	if err != nil {
		return resultBody{}, err
	}
	if kind == kindToken {
		return resultBody{OK: true, Token: string(payload)}, nil
	}

	claims, err := envelope.DecodeClaims(payload)
	if err != nil {
		return resultBody{}, err
	}
	return resultBody{OK: true, Claims: &claimsBody{
		Target:    claims.Grant.Target,
		Action:    claims.Grant.Action,
		IssuedAt:  claims.IssuedAt.UTC(),
		ExpiresAt: claims.ExpiresAt.UTC(),
		ID:        claims.ID,
		KeyID:     claims.KeyID,
		Algorithm: claims.Algorithm.String(),
	}}, nil
}

// getResult returns a parked envelope in its wire form: the CBOR envelope for CBOR
// clients, its JSON rendering otherwise. The envelope stays parked.
func (s *Server) getResult(w http.ResponseWriter, r *http.Request) {
	h, err := envelope.ParseHandle(chi.URLParam(r, "handle"))
	if err != nil {
		writeBody(w, r, http.StatusNotFound, resultBody{Code: "unknown_handle", Error: err.Error()})
		return
	}
	env, err := s.engine.Results().Get(h)
	if err != nil {
		writeBody(w, r, http.StatusNotFound, resultBody{Code: "unknown_handle", Error: err.Error()})
		return
	}

	if wantsCBOR(r) {
		data, err := env.MarshalCBOR()
		if err != nil {
			s.resultGone(w, r, err)
			return
		}
		writeRaw(w, http.StatusOK, contentTypeCBOR, data)
		return
	}
	data, err := env.MarshalJSON()
	if err != nil {
		s.resultGone(w, r, err)
		return
	}
	writeRaw(w, http.StatusOK, contentTypeJSON, append(data, '\n'))
}

func (s *Server) releaseResult(w http.ResponseWriter, r *http.Request) {
	h, err := envelope.ParseHandle(chi.URLParam(r, "handle"))
	if err == nil {
		err = s.engine.ReleaseHandle(clientContext(r), h)
	}
	if err != nil {
		writeBody(w, r, http.StatusNotFound, resultBody{Code: "unknown_handle", Error: envelope.ErrUnknownHandle.Error()})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) resultGone(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, envelope.ErrReleased) {
		writeBody(w, r, http.StatusNotFound, resultBody{Code: "unknown_handle", Error: envelope.ErrUnknownHandle.Error()})
		return
	}
	s.internalError(w, r, err)
}

func (s *Server) badRequest(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusBadRequest
	if errors.Is(err, errUnsupportedMedia) {
		status = http.StatusUnsupportedMediaType
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		status = http.StatusRequestEntityTooLarge
	}
	writeBody(w, r, status, resultBody{Code: "bad_request", Error: http.StatusText(status)})
}

func (s *Server) internalError(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.Sugar().Errorw("result rendering failed", "error", err, "route", routePattern(r))
	writeBody(w, r, http.StatusInternalServerError, resultBody{Code: string(token.ReasonInternal), Error: "internal error"})
}

// statusFor maps an envelope outcome to an HTTP status. The body still carries the
// reason code.
func statusFor(env *envelope.Envelope) int {
	if env.OK() {
		return http.StatusOK
	}
	err := env.Err()
	switch env.Code() {
	case token.ReasonMalformed, token.ReasonUnsupportedAlgorithm, token.ReasonInvalidGrant,
		token.ReasonInvalidLifetime, token.ReasonSigningFailure:
		return http.StatusBadRequest
	case token.ReasonSignatureInvalid, token.ReasonExpired:
		return http.StatusUnauthorized
	case token.ReasonGrantMismatch:
		return http.StatusForbidden
	}
	switch {
	case errors.Is(err, goGrant.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, goGrant.ErrKeyringRequired), errors.Is(err, goGrant.ErrNoSigningKey):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
