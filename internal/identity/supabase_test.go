package identity

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func fakeGoTrue(t *testing.T) (*httptest.Server, *[]string) {
	t.Helper()
	var calls []string
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/v1/token", func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, "token")
		if r.Header.Get("apikey") != "anon" {
			t.Errorf("missing apikey header")
		}
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		switch body["password"] {
		case "good":
			_, _ = w.Write([]byte(`{"access_token":"tok-1","user":{"id":"uuid-1","email":"a@b.co"}}`))
		case "unconfirmed":
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"Email not confirmed"}`))
		default:
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"Invalid login credentials"}`))
		}
	})
	mux.HandleFunc("POST /auth/v1/signup", func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, "signup")
		var body struct {
			Email string            `json:"email"`
			Data  map[string]string `json:"data"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body.Data["full_name"] != "Ana" {
			t.Errorf("expected full_name metadata got %v", body.Data)
		}
		if body.Email == "taken@b.co" {
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(`{"code":422,"msg":"User already registered"}`))
			return
		}
		_, _ = w.Write([]byte(`{"id":"uuid-2","email":"` + body.Email + `"}`))
	})
	mux.HandleFunc("POST /auth/v1/recover", func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, "recover:"+r.URL.Query().Get("redirect_to"))
		_, _ = w.Write([]byte(`{}`))
	})
	mux.HandleFunc("POST /auth/v1/logout", func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, "logout:"+r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusNoContent)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestSupabaseSignIn(t *testing.T) {
	srv, _ := fakeGoTrue(t)
	p := NewSupabase(srv.URL+"/", "anon", "", srv.Client())
	ctx := context.Background()

	res := p.SignIn(ctx, "a@b.co", "good")
	if !res.Success || res.UserID != "uuid-1" {
		t.Fatalf("unexpected result %+v", res)
	}
	if res := p.SignIn(ctx, "a@b.co", "bad"); res.Success || res.Message != "Email ou senha incorretos" {
		t.Fatalf("expected translated credential error got %+v", res)
	}
	if res := p.SignIn(ctx, "a@b.co", "unconfirmed"); res.Success || res.Message != "Confirme seu email antes de fazer login" {
		t.Fatalf("expected translated confirmation error got %+v", res)
	}
}

func TestSupabaseSignUp(t *testing.T) {
	srv, _ := fakeGoTrue(t)
	p := NewSupabase(srv.URL, "anon", "", srv.Client())
	ctx := context.Background()

	if res := p.SignUp(ctx, "new@b.co", "pw", "Ana"); !res.Success || res.UserID != "uuid-2" {
		t.Fatalf("unexpected result %+v", res)
	}
	if res := p.SignUp(ctx, "taken@b.co", "pw", "Ana"); res.Success || res.Message != "User already registered" {
		t.Fatalf("expected server message got %+v", res)
	}
}

func TestSupabaseSignOutAndReset(t *testing.T) {
	srv, calls := fakeGoTrue(t)
	p := NewSupabase(srv.URL, "anon", "https://app.example/login", srv.Client())
	ctx := context.Background()

	p.SignIn(ctx, "a@b.co", "good")
	if res := p.SignOut(ctx, "uuid-1"); !res.Success {
		t.Fatalf("signout: %+v", res)
	}
	if res := p.ResetPassword(ctx, "a@b.co"); !res.Success {
		t.Fatalf("reset: %+v", res)
	}
	want := []string{"token", "logout:Bearer tok-1", "recover:https://app.example/login"}
	if len(*calls) != len(want) {
		t.Fatalf("expected calls %v got %v", want, *calls)
	}
	for i := range want {
		if (*calls)[i] != want[i] {
			t.Fatalf("call %d: expected %s got %s", i, want[i], (*calls)[i])
		}
	}
}

func TestSupabaseUnavailable(t *testing.T) {
	p := NewSupabase("http://127.0.0.1:1", "anon", "", nil)
	if res := p.SignIn(context.Background(), "a@b.co", "good"); res.Success || res.Message == "" {
		t.Fatalf("expected failure with message got %+v", res)
	}
}
