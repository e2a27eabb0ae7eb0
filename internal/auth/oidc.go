/*******************************************************************************
* Copyright (C) 2026 the Eclipse BaSyx Authors and Fraunhofer IESE
*
* Permission is hereby granted, free of charge, to any person obtaining
* a copy of this software and associated documentation files (the
* "Software"), to deal in the Software without restriction, including
* without limitation the rights to use, copy, modify, merge, publish,
* distribute, sublicense, and/or sell copies of the Software, and to
* permit persons to whom the Software is furnished to do so, subject to
* the following conditions:
*
* The above copyright notice and this permission notice shall be
* included in all copies or substantial portions of the Software.
*
* THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND,
* EXPRESS OR IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF
* MERCHANTABILITY, FITNESS FOR A PARTICULAR PURPOSE AND
* NONINFRINGEMENT. IN NO EVENT SHALL THE AUTHORS OR COPYRIGHT HOLDERS BE
* LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER IN AN ACTION
* OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN CONNECTION
* WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.
*
* SPDX-License-Identifier: MIT
******************************************************************************/

// Package auth verifies OIDC bearer tokens in front of the EPQL query API.
package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/coreos/go-oidc"

	"github.com/epcommerce/epql-go-components/internal/common"
	"github.com/epcommerce/epql-go-components/internal/common/logger"
)

// OIDC checks bearer tokens issued by one provider for one audience.
type OIDC struct {
	verifier *oidc.IDTokenVerifier
	scopes   []string
}

// NewOIDC discovers the provider at cfg.Issuer and prepares a verifier for
// cfg.Audience.
func NewOIDC(ctx context.Context, cfg common.OIDCConfig) (*OIDC, error) {
	if cfg.Issuer == "" || cfg.Audience == "" {
		return nil, errors.New("oidc: issuer and audience are required")
	}
	log.Printf("🔐 Initializing OIDC verifier...")
	provider, err := oidc.NewProvider(ctx, cfg.Issuer)
	if err != nil {
		return nil, fmt.Errorf("oidc: discover %s: %w", cfg.Issuer, err)
	}
	v := provider.Verifier(&oidc.Config{
		ClientID: cfg.Audience,
	})
	log.Printf("✅ OIDC verifier created. Issuer=%s Audience=%s", cfg.Issuer, cfg.Audience)
	return &OIDC{verifier: v, scopes: cfg.Scopes}, nil
}

// Claims holds the verified token claims. Numbers decode as json.Number.
type Claims map[string]any

type ctxKey struct{}

// ClaimsFromContext returns the claims stored by Middleware, or nil.
func ClaimsFromContext(ctx context.Context) Claims {
	c, _ := ctx.Value(ctxKey{}).(Claims)
	return c
}

// Subject returns the token subject of the request context, or "".
func Subject(ctx context.Context) string {
	s, _ := ClaimsFromContext(ctx).GetString("sub")
	return s
}

// Middleware rejects requests without a valid bearer token carrying every
// configured scope.
func (o *OIDC) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authz := r.Header.Get("Authorization")
		if !strings.HasPrefix(authz, "Bearer ") {
			reject(w, r, http.StatusUnauthorized, "EPQL-AUTH-MISSINGTOKEN", errors.New("missing or invalid Authorization header"))
			return
		}
		raw := strings.TrimPrefix(authz, "Bearer ")

		idToken, err := o.verifier.Verify(r.Context(), raw)
		if err != nil {
			logger.LogError("token verification failed", err)
			reject(w, r, http.StatusUnauthorized, "EPQL-AUTH-INVALIDTOKEN", errors.New("invalid token"))
			return
		}
		var rm json.RawMessage
		if err := idToken.Claims(&rm); err != nil {
			reject(w, r, http.StatusUnauthorized, "EPQL-AUTH-INVALIDTOKEN", err)
			return
		}

		dec := json.NewDecoder(bytes.NewReader(rm))
		dec.UseNumber()

		var c Claims
		if err := dec.Decode(&c); err != nil {
			logger.LogError("failed to parse claims", err)
			reject(w, r, http.StatusUnauthorized, "EPQL-AUTH-INVALIDTOKEN", errors.New("invalid claims"))
			return
		}

		if typ, _ := c.GetString("typ"); typ != "" && !strings.EqualFold(typ, "Bearer") {
			reject(w, r, http.StatusUnauthorized, "EPQL-AUTH-INVALIDTOKEN", fmt.Errorf("unexpected token type %q", typ))
			return
		}

		if !hasAllScopes(c, o.scopes) {
			reject(w, r, http.StatusForbidden, "EPQL-AUTH-INSUFFICIENTSCOPE", fmt.Errorf("token lacks scopes %v", o.scopes))
			return
		}

		ctx := context.WithValue(r.Context(), ctxKey{}, c)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func reject(w http.ResponseWriter, r *http.Request, status int, code string, err error) {
	correlationID := common.CorrelationID(r)
	w.Header().Set(common.CorrelationHeader, correlationID)
	common.WriteError(w, status, common.NewErrorHandler("Error", err, code, correlationID, common.GetCurrentTimestamp()))
}

// GetString returns the string claim key.
func (c Claims) GetString(key string) (string, bool) {
	v, ok := c[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func hasAllScopes(c Claims, need []string) bool {
	s, _ := c.GetString("scope") // space separated, e.g. "epql.query profile"
	have := map[string]struct{}{}
	for _, sc := range strings.Fields(s) {
		have[sc] = struct{}{}
	}
	for _, n := range need {
		if _, ok := have[n]; !ok {
			return false
		}
	}
	return true
}
