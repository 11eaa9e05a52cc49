package main

import (
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// token defaults to a dev token for --user so local use needs no flags beyond
// --user.
func httpClient() *resty.Client {
	token := tokenFlag
	if token == "" && userFlag != "" {
		token = "dev:" + userFlag
	}
	return resty.New().
		SetBaseURL(apiFlag).
		SetAuthToken(token).
		SetTimeout(60 * time.Second)
}

func doGet(path string) (string, error) {
	resp, err := httpClient().R().Get(path)
	if err != nil {
		return "", err
	}
	if resp.IsError() {
		return "", fmt.Errorf("http %d: %s", resp.StatusCode(), resp.String())
	}
	return resp.String(), nil
}

func doPost(path string, payload any) (string, error) {
	resp, err := httpClient().R().SetBody(payload).Post(path)
	if err != nil {
		return "", err
	}
	if resp.IsError() {
		return "", fmt.Errorf("http %d: %s", resp.StatusCode(), resp.String())
	}
	return resp.String(), nil
}

func doDelete(path string) error {
	resp, err := httpClient().R().Delete(path)
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("http %d: %s", resp.StatusCode(), resp.String())
	}
	return nil
}
