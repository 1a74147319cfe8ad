// Package csm is a client of the CORTX management REST API.
package csm

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"io/ioutil"
	"net/http"
	"strings"
	"sync"
	"time"

	"cortx-e2e/common/cterror"

	logf "sigs.k8s.io/controller-runtime/pkg/log"
)

const (
	loginPath      = "/api/v2/login"
	logoutPath     = "/api/v2/logout"
	s3AccountsPath = "/api/v2/s3_accounts"
	capacityPath   = "/api/v2/capacity"
)

type Client struct {
	Endpoint string
	Username string
	Password string
	HTTP     *http.Client

	mu    sync.Mutex
	token string
}

func New(endpoint, username, password string, verifyTLS bool) *Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: !verifyTLS} // #nosec G402
	return &Client{
		Endpoint: strings.TrimRight(endpoint, "/"),
		Username: username,
		Password: password,
		HTTP:     &http.Client{Timeout: 30 * time.Second, Transport: transport},
	}
}

type S3Account struct {
	AccountName  string `json:"account_name"`
	AccountEmail string `json:"account_email"`
	AccessKey    string `json:"access_key,omitempty"`
	SecretKey    string `json:"secret_key,omitempty"`
	CanonicalID  string `json:"canonical_id,omitempty"`
}

type Capacity struct {
	Size        int64   `json:"size"`
	Used        int64   `json:"used"`
	Avail       int64   `json:"avail"`
	UsedPercent float64 `json:"used_percent"`
	Unit        string  `json:"unit"`
}

func (c *Client) newRequest(ctx context.Context, method, path string, body interface{}) (*http.Request, error) {
	reqData := new(bytes.Buffer)
	if body != nil {
		if err := json.NewEncoder(reqData).Encode(body); err != nil {
			return nil, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, c.Endpoint+path, reqData)
	if err != nil {
		return nil, err
	}
	req.Header.Add("Accept", "application/json")
	req.Header.Add("Content-Type", "application/json")
	return req, nil
}

// Login opens a session, the token is sent with every later request.
func (c *Client) Login(ctx context.Context) error {
	req, err := c.newRequest(ctx, http.MethodPost, loginPath, map[string]string{
		"username": c.Username,
		"password": c.Password,
	})
	if err != nil {
		return cterror.WrapException(err, cterror.CSMLoginError, "%s", c.Endpoint)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return cterror.WrapException(err, cterror.CSMLoginError, "%s", c.Endpoint)
	}
	defer resp.Body.Close()
	bodyBytes, _ := ioutil.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return cterror.NewException(cterror.CSMLoginError, "user %s status %d: %s", c.Username, resp.StatusCode, strings.TrimSpace(string(bodyBytes)))
	}
	token := resp.Header.Get("Authorization")
	if token == "" {
		return cterror.NewException(cterror.CSMLoginError, "user %s: no token in response", c.Username)
	}
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
	logf.Log.Info("CSM login", "endpoint", c.Endpoint, "user", c.Username)
	return nil
}

func (c *Client) Logout(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodPost, logoutPath, nil, nil)
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()
	return err
}

func (c *Client) currentToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	token := c.token
	c.mu.Unlock()
	if token != "" {
		return token, nil
	}
	if err := c.Login(ctx); err != nil {
		return "", err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token, nil
}

// Send issues an authenticated request and returns the status and body,
// without interpreting the status.
func (c *Client) Send(ctx context.Context, method, path string, body interface{}) (int, []byte, error) {
	token, err := c.currentToken(ctx)
	if err != nil {
		return 0, nil, err
	}
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Add("Authorization", token)
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return 0, nil, cterror.WrapException(err, cterror.CSMRestError, "%s %s", method, path)
	}
	defer resp.Body.Close()
	bodyBytes, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, cterror.WrapException(err, cterror.CSMRestError, "%s %s", method, path)
	}
	return resp.StatusCode, bodyBytes, nil
}

// do sends the request, logging in again once if the session expired, and
// decodes a 2xx response into out when out is not nil.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) (int, error) {
	status, respBody, err := c.Send(ctx, method, path, body)
	if err == nil && status == http.StatusUnauthorized {
		if err = c.Login(ctx); err != nil {
			return status, err
		}
		status, respBody, err = c.Send(ctx, method, path, body)
	}
	if err != nil {
		return status, err
	}
	if status < 200 || status > 299 {
		return status, cterror.NewException(cterror.CSMRestError, "%s %s status %d: %s", method, path, status, strings.TrimSpace(string(respBody)))
	}
	if out != nil && len(respBody) != 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return status, cterror.WrapException(err, cterror.CSMRestError, "%s %s decoding response", method, path)
		}
	}
	return status, nil
}

func (c *Client) CreateS3Account(ctx context.Context, name, email, password string) (S3Account, error) {
	var acc S3Account
	logf.Log.Info("Creating S3 account", "name", name, "email", email)
	_, err := c.do(ctx, http.MethodPost, s3AccountsPath, map[string]string{
		"account_name":  name,
		"account_email": email,
		"password":      password,
	}, &acc)
	return acc, err
}

func (c *Client) ListS3Accounts(ctx context.Context) ([]S3Account, error) {
	var resp struct {
		Accounts []S3Account `json:"s3_accounts"`
	}
	if _, err := c.do(ctx, http.MethodGet, s3AccountsPath, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Accounts, nil
}

func (c *Client) DeleteS3Account(ctx context.Context, name string) error {
	logf.Log.Info("Deleting S3 account", "name", name)
	_, err := c.do(ctx, http.MethodDelete, s3AccountsPath+"/"+name, nil, nil)
	return err
}

func (c *Client) GetCapacity(ctx context.Context) (Capacity, error) {
	var capacity Capacity
	_, err := c.do(ctx, http.MethodGet, capacityPath, nil, &capacity)
	return capacity, err
}
