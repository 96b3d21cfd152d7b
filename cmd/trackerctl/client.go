package main

import (
	"fmt"

	"github.com/go-resty/resty/v2"

	"github.com/amptracker/amp-tracker/internal/auth"
)

// newClient builds a resty client with the bearer key applied. The local
// dev admin key is the default so template commands work out of the box
// against a dev server.
func newClient() *resty.Client {
	key := keyFlag
	if key == "" {
		key = auth.LocalDevAdminKey
	}
	return resty.New().
		SetBaseURL(apiFlag).
		SetAuthToken(key).
		SetHeader("Content-Type", "application/json")
}

// checkResp normalizes non-2xx responses into errors with the body attached.
func checkResp(resp *resty.Response, err error) ([]byte, error) {
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("http %d: %s", resp.StatusCode(), resp.String())
	}
	return resp.Body(), nil
}
