package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/diewo77/go-quotes/i18n"
)

// Supabase talks to a Supabase GoTrue server over its REST API.
type Supabase struct {
	baseURL       string
	anonKey       string
	resetRedirect string
	http          *http.Client

	mu     sync.Mutex
	tokens map[string]string // user id -> access token, for sign-out
}

func NewSupabase(baseURL, anonKey, resetRedirect string, client *http.Client) *Supabase {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Supabase{
		baseURL:       strings.TrimRight(baseURL, "/"),
		anonKey:       anonKey,
		resetRedirect: resetRedirect,
		http:          client,
		tokens:        map[string]string{},
	}
}

type gotrueUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type gotrueSession struct {
	AccessToken string     `json:"access_token"`
	User        gotrueUser `json:"user"`
	// Signup without a session returns the user fields at top level.
	ID string `json:"id"`
}

type gotrueError struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	Msg              string `json:"msg"`
	Message          string `json:"message"`
}

func (e gotrueError) text() string {
	for _, s := range []string{e.ErrorDescription, e.Msg, e.Message, e.Error} {
		if s != "" {
			return s
		}
	}
	return ""
}

// call POSTs payload to path and decodes a 2xx body into out. A non-2xx
// response returns the server's error text.
func (s *Supabase) call(ctx context.Context, path, bearer string, payload, out any) (int, string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, "", err
	}
	urlStr := s.baseURL + path
	if !strings.HasPrefix(urlStr, "http://") && !strings.HasPrefix(urlStr, "https://") {
		return 0, "", fmt.Errorf("invalid supabase url")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, urlStr, bytes.NewReader(body))
	if err != nil {
		return 0, "", err
	}
	if bearer == "" {
		bearer = s.anonKey
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", s.anonKey)
	req.Header.Set("Authorization", "Bearer "+bearer)

	resp, err := s.http.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var ge gotrueError
		_ = json.Unmarshal(raw, &ge)
		msg := ge.text()
		if msg == "" {
			msg = strings.TrimSpace(string(raw))
		}
		return resp.StatusCode, msg, nil
	}
	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return resp.StatusCode, "", err
		}
	}
	return resp.StatusCode, "", nil
}

func (s *Supabase) unavailable(ctx context.Context, op string, err error) Result {
	slog.ErrorContext(ctx, "supabase request failed", "op", op, "err", err)
	return fail(i18n.T("auth_unavailable"))
}

func (s *Supabase) SignIn(ctx context.Context, email, password string) Result {
	var sess gotrueSession
	_, errText, err := s.call(ctx, "/auth/v1/token?grant_type=password", "", map[string]string{
		"email":    strings.TrimSpace(email),
		"password": password,
	}, &sess)
	if err != nil {
		return s.unavailable(ctx, "signin", err)
	}
	if errText != "" {
		switch {
		case strings.Contains(errText, "Invalid login credentials"):
			return fail(i18n.T("signin_invalid"))
		case strings.Contains(errText, "Email not confirmed"):
			return fail(i18n.T("signin_unconfirmed"))
		}
		return fail(errText)
	}
	if sess.User.ID == "" {
		return s.unavailable(ctx, "signin", fmt.Errorf("response without user id"))
	}
	s.mu.Lock()
	s.tokens[sess.User.ID] = sess.AccessToken
	s.mu.Unlock()
	return ok(i18n.T("signin_ok"), sess.User.ID)
}

func (s *Supabase) SignUp(ctx context.Context, email, password, name string) Result {
	if strings.TrimSpace(email) == "" || password == "" {
		return fail(i18n.T("signup_missing"))
	}
	var sess gotrueSession
	_, errText, err := s.call(ctx, "/auth/v1/signup", "", map[string]any{
		"email":    strings.TrimSpace(email),
		"password": password,
		"data":     map[string]string{"full_name": strings.TrimSpace(name)},
	}, &sess)
	if err != nil {
		return s.unavailable(ctx, "signup", err)
	}
	if errText != "" {
		return fail(errText)
	}
	id := sess.User.ID
	if id == "" {
		id = sess.ID
	}
	return ok(i18n.T("signup_ok"), id)
}

func (s *Supabase) SignOut(ctx context.Context, userID string) Result {
	s.mu.Lock()
	token := s.tokens[userID]
	delete(s.tokens, userID)
	s.mu.Unlock()
	if token == "" {
		return ok(i18n.T("signout_ok"), "")
	}
	_, errText, err := s.call(ctx, "/auth/v1/logout", token, struct{}{}, nil)
	if err != nil {
		return s.unavailable(ctx, "signout", err)
	}
	if errText != "" {
		return fail(errText)
	}
	return ok(i18n.T("signout_ok"), "")
}

func (s *Supabase) ResetPassword(ctx context.Context, email string) Result {
	path := "/auth/v1/recover"
	if s.resetRedirect != "" {
		path += "?redirect_to=" + url.QueryEscape(s.resetRedirect)
	}
	_, errText, err := s.call(ctx, path, "", map[string]string{"email": strings.TrimSpace(email)}, nil)
	if err != nil {
		return s.unavailable(ctx, "recover", err)
	}
	if errText != "" {
		return fail(errText)
	}
	return ok(i18n.T("reset_sent"), "")
}
