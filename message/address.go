// Copyright ReqRep Transformation Authors
// SPDX-License-Identifier: Apache-2.0
// The full text of the Apache license is available in the LICENSE file at
// the root of the repo.

package message

import "net/url"

// Address is the mutable request target of a message. On the request side it
// wraps the host's outbound URL directly, so mutations change where the
// request is sent; on the response side the context carries a detached copy
// and mutations are advisory only.
type Address struct {
	u *url.URL
}

// NewAddress wraps the given URL. The URL is retained, not copied.
func NewAddress(u *url.URL) *Address { return &Address{u: u} }

// ParseAddress parses raw into an Address.
func ParseAddress(raw string) (*Address, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	return &Address{u: u}, nil
}

// URL returns the underlying URL.
func (a *Address) URL() *url.URL { return a.u }

// Clone returns a deep copy of the address.
func (a *Address) Clone() *Address {
	u := *a.u
	if a.u.User != nil {
		user := *a.u.User
		u.User = &user
	}
	return &Address{u: &u}
}

// Scheme returns the URL scheme.
func (a *Address) Scheme() string { return a.u.Scheme }

// SetScheme replaces the URL scheme.
func (a *Address) SetScheme(scheme string) { a.u.Scheme = scheme }

// Host returns the host, including the port if present.
func (a *Address) Host() string { return a.u.Host }

// SetHost replaces the host (optionally "host:port").
func (a *Address) SetHost(host string) { a.u.Host = host }

// Hostname returns the host without the port.
func (a *Address) Hostname() string { return a.u.Hostname() }

// Port returns the port, or "" when none is set.
func (a *Address) Port() string { return a.u.Port() }

// Path returns the URL path.
func (a *Address) Path() string { return a.u.Path }

// SetPath replaces the URL path.
func (a *Address) SetPath(path string) { a.u.Path = path }

// Query returns the first value of the named query parameter.
func (a *Address) Query(key string) string { return a.u.Query().Get(key) }

// QueryValues returns a copy of the parsed query parameters.
func (a *Address) QueryValues() url.Values { return a.u.Query() }

// SetQueryParam sets the named query parameter, replacing existing values.
func (a *Address) SetQueryParam(key, value string) {
	q := a.u.Query()
	q.Set(key, value)
	a.u.RawQuery = q.Encode()
}

// DelQueryParam removes the named query parameter.
func (a *Address) DelQueryParam(key string) {
	q := a.u.Query()
	q.Del(key)
	a.u.RawQuery = q.Encode()
}

// String returns the URL in its serialized form.
func (a *Address) String() string { return a.u.String() }
