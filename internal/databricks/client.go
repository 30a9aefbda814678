// Package databricks implements the token minter for AI/BI external
// embedding: the three-step OAuth exchange that turns service-principal
// credentials plus a viewer identity into a short-lived token scoped to one
// published dashboard.
package databricks

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/doj0985/databricks-aibi-external-embedding/internal/config"
	"github.com/doj0985/databricks-aibi-external-embedding/internal/model"
)

const (
	tokenEndpointPath     = "/oidc/v1/token"
	tokenInfoPathTemplate = "/api/2.0/lakeview/dashboards/%s/published/tokeninfo"

	defaultExpiresIn = 3600
)

type Client struct {
	cfg        config.DatabricksConfig
	httpClient *http.Client
}

func NewClient(cfg config.DatabricksConfig) *Client {
	timeout := cfg.UpstreamTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Mint performs the three-step exchange for one user. Each step feeds the
// next; the first non-2xx answer aborts the whole operation and any token
// obtained along the way is discarded, never reused on a later call.
func (c *Client) Mint(ctx context.Context, user model.User) (model.TokenResult, error) {
	if err := c.checkConfig(); err != nil {
		return model.TokenResult{}, err
	}

	broadToken, err := c.exchangeClientCredentials(ctx)
	if err != nil {
		return model.TokenResult{}, err
	}

	tokenInfo, err := c.fetchTokenInfo(ctx, broadToken, user)
	if err != nil {
		return model.TokenResult{}, err
	}

	scoped, err := c.exchangeScopedToken(ctx, tokenInfo)
	if err != nil {
		return model.TokenResult{}, err
	}

	expiresIn := int64(defaultExpiresIn)
	if scoped.ExpiresIn != nil {
		expiresIn = *scoped.ExpiresIn
	}

	return model.TokenResult{
		AccessToken: scoped.AccessToken,
		TokenType:   "Bearer",
		ExpiresIn:   expiresIn,
		CreatedAt:   time.Now().Unix(),
	}, nil
}

func (c *Client) checkConfig() error {
	var missing []string
	if strings.TrimSpace(c.cfg.WorkspaceURL) == "" {
		missing = append(missing, "DATABRICKS_WORKSPACE_URL")
	}
	if strings.TrimSpace(c.cfg.ClientID) == "" {
		missing = append(missing, "DATABRICKS_CLIENT_ID")
	}
	if strings.TrimSpace(c.cfg.ClientSecret) == "" {
		missing = append(missing, "DATABRICKS_CLIENT_SECRET")
	}
	if strings.TrimSpace(c.cfg.DashboardID) == "" {
		missing = append(missing, "DATABRICKS_DASHBOARD_ID")
	}

	if len(missing) > 0 {
		return missingConfigError(missing)
	}

	return nil
}

// exchangeClientCredentials is step 1: the client-credentials grant with
// scope all-apis, yielding the broad workspace token.
func (c *Client) exchangeClientCredentials(ctx context.Context) (string, error) {
	grant := &clientcredentials.Config{
		ClientID:     c.cfg.ClientID,
		ClientSecret: c.cfg.ClientSecret,
		TokenURL:     c.tokenEndpoint(),
		Scopes:       []string{"all-apis"},
		AuthStyle:    oauth2.AuthStyleInHeader,
	}

	token, err := grant.Token(context.WithValue(ctx, oauth2.HTTPClient, c.httpClient))
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
			return "", &UpstreamError{
				Step:       "oidc token exchange",
				StatusCode: retrieveErr.Response.StatusCode,
				Body:       string(retrieveErr.Body),
			}
		}
		return "", fmt.Errorf("oidc token exchange: %w", err)
	}

	return token.AccessToken, nil
}

// fetchTokenInfo is step 2: ask the published dashboard for the token
// parameters that scope a viewer, forwarding identity and attribute values
// for row-level security.
func (c *Client) fetchTokenInfo(ctx context.Context, broadToken string, user model.User) (map[string]any, error) {
	infoURL, err := url.Parse(c.cfg.WorkspaceURL + fmt.Sprintf(tokenInfoPathTemplate, url.PathEscape(c.cfg.DashboardID)))
	if err != nil {
		return nil, fmt.Errorf("build tokeninfo URL: %w", err)
	}

	query := url.Values{}
	query.Set("external_viewer_id", user.Email)
	query.Set("external_value", user.Department)
	infoURL.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, infoURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build tokeninfo request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+broadToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tokeninfo request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read tokeninfo response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &UpstreamError{Step: "tokeninfo lookup", StatusCode: resp.StatusCode, Body: string(body)}
	}

	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.UseNumber()

	var tokenInfo map[string]any
	if err := decoder.Decode(&tokenInfo); err != nil {
		return nil, fmt.Errorf("decode tokeninfo response: %w", err)
	}

	return tokenInfo, nil
}

type scopedToken struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   *int64 `json:"expires_in"`
}

// exchangeScopedToken is step 3: replay every tokeninfo field as form values,
// with authorization_details re-inserted as its JSON serialization, against
// the same token endpoint.
func (c *Client) exchangeScopedToken(ctx context.Context, tokenInfo map[string]any) (scopedToken, error) {
	authDetails, err := json.Marshal(tokenInfo["authorization_details"])
	if err != nil {
		return scopedToken{}, fmt.Errorf("serialize authorization_details: %w", err)
	}

	form := url.Values{}
	for key, value := range tokenInfo {
		if key == "authorization_details" {
			continue
		}
		encoded, err := formValue(value)
		if err != nil {
			return scopedToken{}, fmt.Errorf("encode tokeninfo field %q: %w", key, err)
		}
		form.Set(key, encoded)
	}
	form.Set("grant_type", "client_credentials")
	form.Set("authorization_details", string(authDetails))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenEndpoint(), strings.NewReader(form.Encode()))
	if err != nil {
		return scopedToken{}, fmt.Errorf("build scoped token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(c.cfg.ClientID, c.cfg.ClientSecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return scopedToken{}, fmt.Errorf("scoped token request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return scopedToken{}, fmt.Errorf("read scoped token response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return scopedToken{}, &UpstreamError{Step: "scoped token exchange", StatusCode: resp.StatusCode, Body: string(body)}
	}

	var scoped scopedToken
	if err := json.Unmarshal(body, &scoped); err != nil {
		return scopedToken{}, fmt.Errorf("decode scoped token response: %w", err)
	}
	if scoped.AccessToken == "" {
		return scopedToken{}, fmt.Errorf("scoped token response missing access_token")
	}

	return scoped, nil
}

func (c *Client) tokenEndpoint() string {
	return c.cfg.WorkspaceURL + tokenEndpointPath
}

func formValue(value any) (string, error) {
	switch v := value.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case json.Number:
		return v.String(), nil
	case bool:
		return strconv.FormatBool(v), nil
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return "", err
		}
		return string(encoded), nil
	}
}
