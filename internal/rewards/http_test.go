package rewards

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gagliardetto/solana-go"
)

func testServer(t *testing.T, cfg Config) (*httptest.Server, *FakeEngine) {
	t.Helper()
	svc, engine, _, _ := testService(t, cfg)
	mux := http.NewServeMux()
	NewHTTPHandler(svc).RegisterRoutes(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, engine
}

func postReward(t *testing.T, srv *httptest.Server, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(srv.URL+"/rewards", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST /rewards failed: %v", err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	defer resp.Body.Close()
	var out map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func TestHTTPProcessReward(t *testing.T) {
	srv, _ := testServer(t, Config{})
	wallet := solana.NewWallet().PublicKey().String()

	body := fmt.Sprintf(`{
		"userWalletAddress": %q,
		"rewardAmount": 15,
		"conversationId": "conv-http-1",
		"conversationLength": 1500,
		"plan": "pro",
		"timestamp": 1756500000000
	}`, wallet)

	resp := postReward(t, srv, body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	out := decodeBody(t, resp)
	if out["success"] != true {
		t.Errorf("expected success envelope, got %v", out)
	}
	data, _ := out["data"].(map[string]interface{})
	if data == nil {
		t.Fatalf("missing data in %v", out)
	}
	if data["userRewardAmount"].(float64) != 13_000_000 {
		t.Errorf("user amount: got %v", data["userRewardAmount"])
	}
	if data["userRewardTx"] == "" {
		t.Error("missing user transaction signature")
	}
}

func TestHTTPProcessRewardValidation(t *testing.T) {
	srv, _ := testServer(t, Config{})

	resp := postReward(t, srv, `{"userWalletAddress": "nope", "rewardAmount": 1, "conversationId": "c", "conversationLength": 100}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for bad wallet, got %d", resp.StatusCode)
	}
	out := decodeBody(t, resp)
	if out["success"] != false {
		t.Errorf("expected failure envelope, got %v", out)
	}
	if msg, _ := out["error"].(string); msg == "" {
		t.Errorf("expected error message, got %v", out)
	}

	resp = postReward(t, srv, `{not json`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for malformed body, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = postReward(t, srv, `{"unknownField": true}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown field, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestHTTPProcessRewardBurnWarning(t *testing.T) {
	srv, engine := testServer(t, Config{})
	engine.BurnErr = fmt.Errorf("node unavailable")
	wallet := solana.NewWallet().PublicKey().String()

	body := fmt.Sprintf(`{
		"userWalletAddress": %q,
		"rewardAmount": 15,
		"conversationId": "conv-burn-1",
		"conversationLength": 1500,
		"plan": "pro"
	}`, wallet)

	resp := postReward(t, srv, body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("partial grant must still return 200, got %d", resp.StatusCode)
	}
	out := decodeBody(t, resp)
	if out["success"] != true {
		t.Errorf("expected success envelope, got %v", out)
	}
	data, _ := out["data"].(map[string]interface{})
	if data == nil {
		t.Fatalf("missing data in %v", out)
	}
	if _, present := data["burnTx"]; present {
		t.Errorf("burnTx must be absent when the burn leg failed, got %v", data["burnTx"])
	}
	if warning, _ := data["warning"].(string); warning == "" {
		t.Errorf("expected burn warning, got %v", data)
	}
}

func TestHTTPMethodNotAllowed(t *testing.T) {
	srv, _ := testServer(t, Config{})

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/rewards", nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE /rewards failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", resp.StatusCode)
	}
	if allow := resp.Header.Get("Allow"); allow != "GET, POST" {
		t.Errorf("Allow header: got %q", allow)
	}

	resp2, err := http.Post(srv.URL+"/rewards/grants", "application/json", strings.NewReader("{}"))
	if err != nil {
		t.Fatalf("POST /rewards/grants failed: %v", err)
	}
	defer resp2.Body.Close()
	if resp2.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", resp2.StatusCode)
	}
	if allow := resp2.Header.Get("Allow"); allow != "GET" {
		t.Errorf("Allow header: got %q", allow)
	}
}

func TestHTTPDailyLimitRejection(t *testing.T) {
	srv, _ := testServer(t, Config{DailyCapTokens: 10})
	wallet := solana.NewWallet().PublicKey().String()

	body := fmt.Sprintf(`{
		"userWalletAddress": %q,
		"rewardAmount": 15,
		"conversationId": "conv-1",
		"conversationLength": 1500,
		"plan": "pro"
	}`, wallet)

	resp := postReward(t, srv, body)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 over the daily cap, got %d", resp.StatusCode)
	}
	out := decodeBody(t, resp)
	if out["success"] != false {
		t.Errorf("expected failure envelope, got %v", out)
	}
	data, _ := out["data"].(map[string]interface{})
	if data == nil || data["resetAt"] == nil {
		t.Errorf("expected reset time in rejection, got %v", out)
	}
}

func TestHTTPRateLimit(t *testing.T) {
	srv, _ := testServer(t, Config{RequestsPerMinute: 1, DailyCapTokens: 100000})
	wallet := solana.NewWallet().PublicKey().String()
	body := fmt.Sprintf(`{
		"userWalletAddress": %q,
		"rewardAmount": 15,
		"conversationId": "conv-1",
		"conversationLength": 1500
	}`, wallet)

	resp := postReward(t, srv, body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("first request should pass, got %d", resp.StatusCode)
	}

	resp = postReward(t, srv, body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Errorf("expected 429, got %d", resp.StatusCode)
	}
}

func TestHTTPQueries(t *testing.T) {
	srv, engine := testServer(t, Config{})
	wallet := solana.NewWallet().PublicKey().String()
	engine.SetBalance(wallet, 42_000_000)

	t.Run("balance", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/rewards?action=balance&userWalletAddress=" + wallet)
		if err != nil {
			t.Fatalf("GET failed: %v", err)
		}
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}
		out := decodeBody(t, resp)
		data := out["data"].(map[string]interface{})
		if data["balance"].(float64) != 42_000_000 {
			t.Errorf("balance: got %v", data["balance"])
		}
	})

	t.Run("daily-limit", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/rewards?action=daily-limit&userWalletAddress=" + wallet)
		if err != nil {
			t.Fatalf("GET failed: %v", err)
		}
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}
		out := decodeBody(t, resp)
		data := out["data"].(map[string]interface{})
		if data["remaining"].(float64) != float64(DefaultDailyCapTokens)*1_000_000 {
			t.Errorf("remaining: got %v", data["remaining"])
		}
	})

	t.Run("treasury-balance", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/rewards?action=treasury-balance")
		if err != nil {
			t.Fatalf("GET failed: %v", err)
		}
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}
		resp.Body.Close()
	})

	t.Run("missing wallet", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/rewards?action=balance")
		if err != nil {
			t.Fatalf("GET failed: %v", err)
		}
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", resp.StatusCode)
		}
		resp.Body.Close()
	})

	t.Run("unknown action", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/rewards?action=mint&userWalletAddress=" + wallet)
		if err != nil {
			t.Fatalf("GET failed: %v", err)
		}
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", resp.StatusCode)
		}
		resp.Body.Close()
	})
}

func TestHTTPGrants(t *testing.T) {
	srv, _ := testServer(t, Config{})
	wallet := solana.NewWallet().PublicKey().String()

	body := fmt.Sprintf(`{
		"userWalletAddress": %q,
		"rewardAmount": 15,
		"conversationId": "conv-1",
		"conversationLength": 1500,
		"plan": "premium"
	}`, wallet)
	resp := postReward(t, srv, body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("grant failed with %d", resp.StatusCode)
	}

	resp, err := http.Get(srv.URL + "/rewards/grants?userWalletAddress=" + wallet)
	if err != nil {
		t.Fatalf("GET grants failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	out := decodeBody(t, resp)
	grants, _ := out["data"].([]interface{})
	if len(grants) != 1 {
		t.Fatalf("expected 1 grant, got %v", out["data"])
	}
}

func TestHTTPHealth(t *testing.T) {
	srv, _ := testServer(t, Config{})
	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
}
