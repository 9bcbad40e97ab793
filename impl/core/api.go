package core

import (
	"fmt"
)

// AuthenticateByToken resolves an API token to a client name. The key from
// config always works; other keys are checked against the database and
// cached for the process lifetime.
func (c *Core) AuthenticateByToken(token string) (string, error) {
	if token == "" {
		return "", fmt.Errorf("empty token")
	}
	if c.authKey != "" && token == c.authKey {
		return "admin", nil
	}

	c.keysMu.Lock()
	name, ok := c.keys[token]
	c.keysMu.Unlock()
	if ok {
		return name, nil
	}

	if c.repo == nil {
		return "", fmt.Errorf("unknown token")
	}
	name, err := c.repo.CheckApiKey(token)
	if err != nil {
		return "", err
	}

	c.keysMu.Lock()
	c.keys[token] = name
	c.keysMu.Unlock()
	return name, nil
}

// ValidateKey authenticates a websocket client.
func (c *Core) ValidateKey(key string) error {
	_, err := c.AuthenticateByToken(key)
	return err
}
