package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// ParsedDSN is the decoded form of the databaseUrl option: scheme, dial
// parameters, and the two options query-string form can carry that the
// structured options can't (ssl mode, connectionLimit).
type ParsedDSN struct {
	Scheme          string
	User            string
	Password        string
	Host            string
	Port            int
	Database        string
	SSL             string
	ConnectionLimit int
	HasConnLimit    bool
}

// ParseDatabaseURL decodes a databaseUrl of the documented form
// `<scheme>://[user[:password]@]host[:port]/database[?ssl=...&connectionLimit=N]`.
// The password is percent-decoded by url.Parse itself (net/url always
// percent-decodes userinfo).
func ParseDatabaseURL(raw string) (*ParsedDSN, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("config: parsing databaseUrl: %w", err)
	}
	if u.Scheme == "" {
		return nil, fmt.Errorf("config: databaseUrl missing scheme")
	}

	parsed := &ParsedDSN{
		Scheme:   u.Scheme,
		Host:     u.Hostname(),
		Database: strings.TrimPrefix(u.Path, "/"),
	}
	if u.User != nil {
		parsed.User = u.User.Username()
		parsed.Password, _ = u.User.Password()
	}
	if portText := u.Port(); portText != "" {
		port, err := strconv.Atoi(portText)
		if err != nil {
			return nil, fmt.Errorf("config: invalid port in databaseUrl: %w", err)
		}
		parsed.Port = port
	}

	q := u.Query()
	if ssl := q.Get("ssl"); ssl != "" {
		parsed.SSL = ssl
	}
	if limitText := q.Get("connectionLimit"); limitText != "" {
		limit, err := strconv.Atoi(limitText)
		if err != nil {
			return nil, fmt.Errorf("config: invalid connectionLimit in databaseUrl: %w", err)
		}
		parsed.ConnectionLimit = limit
		parsed.HasConnLimit = true
	}
	return parsed, nil
}
