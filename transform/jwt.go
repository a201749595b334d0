// Copyright ReqRep Transformation Authors
// SPDX-License-Identifier: Apache-2.0
// The full text of the Apache license is available in the LICENSE file at
// the root of the repo.

package transform

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/agaheman/ReqRepTransformation/message"
)

// jwtForward deliberately forwards the bearer token untouched. It exists so
// that the decision shows up as an applied transform in traces rather than
// as the absence of a strip. Params: headerName (default Authorization).
type jwtForward struct {
	headerName string
}

// Name implements [Transform.Name].
func (t *jwtForward) Name() string { return "jwt-forward" }

// Configure implements [Transform.Configure].
func (t *jwtForward) Configure(params Params) error {
	t.headerName = params.String("headerName", "Authorization")
	return nil
}

// ShouldApply implements [Buffered.ShouldApply].
func (t *jwtForward) ShouldApply(msg *message.Buffered) bool {
	return msg.Headers().Has(t.headerName)
}

// Apply implements [Buffered.Apply].
func (t *jwtForward) Apply(context.Context, *message.Buffered) error { return nil }

// jwtClaimsExtract projects claims of the bearer token into headers. The
// token is decoded without signature verification: the gateway forwards
// identity hints, it does not authenticate. Malformed tokens are silently
// skipped. Params: claimMap (required, "claim=Header|claim=Header"),
// headerName (default Authorization).
type jwtClaimsExtract struct {
	headerName string
	claimMap   map[string]string
}

// Name implements [Transform.Name].
func (t *jwtClaimsExtract) Name() string { return "jwt-claims-extract" }

// Configure implements [Transform.Configure].
func (t *jwtClaimsExtract) Configure(params Params) error {
	claimMap := params.PairMap("claimMap")
	if len(claimMap) == 0 {
		return &MissingParamError{Key: "claimMap"}
	}
	t.claimMap = claimMap
	t.headerName = params.String("headerName", "Authorization")
	return nil
}

// ShouldApply implements [Buffered.ShouldApply].
func (t *jwtClaimsExtract) ShouldApply(msg *message.Buffered) bool {
	return msg.Headers().Has(t.headerName)
}

// Apply implements [Buffered.Apply].
func (t *jwtClaimsExtract) Apply(_ context.Context, msg *message.Buffered) error {
	raw := bearerToken(msg.Headers().Get(t.headerName))
	if raw == "" {
		return nil
	}
	token, _, err := jwt.NewParser().ParseUnverified(raw, jwt.MapClaims{})
	if err != nil {
		// Malformed tokens are not this transform's problem; the backend
		// will reject the request if it cares.
		return nil
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil
	}
	for claim, header := range t.claimMap {
		if v, found := claims[claim]; found {
			msg.Headers().Set(header, formatClaim(v))
		}
	}
	return nil
}

// bearerToken strips an optional "Bearer" scheme prefix from an
// Authorization-style header value.
func bearerToken(value string) string {
	value = strings.TrimSpace(value)
	if len(value) > 7 && strings.EqualFold(value[:7], "bearer ") {
		return strings.TrimSpace(value[7:])
	}
	return value
}

// formatClaim renders a decoded claim value as a header-safe string.
func formatClaim(v any) string {
	switch value := v.(type) {
	case string:
		return value
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(value)
	default:
		return fmt.Sprintf("%v", value)
	}
}
