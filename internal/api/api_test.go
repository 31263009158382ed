package api

import (
	"bytes"
	"encoding/json"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/erazemk/trznica/internal/account"
	"github.com/erazemk/trznica/internal/auth"
	"github.com/erazemk/trznica/internal/catalog"
	"github.com/erazemk/trznica/internal/db"
	"github.com/erazemk/trznica/internal/images"
	"github.com/erazemk/trznica/internal/imaging"
	"github.com/erazemk/trznica/internal/ledger"
	"github.com/erazemk/trznica/internal/ratelimit"
)

const testJWTSecret = "test-secret"

func setupTestServer(t *testing.T, limiter ratelimit.Limiter) *httptest.Server {
	t.Helper()
	database := db.NewTestDB(t)
	log := zap.NewNop()

	dir := filepath.Join(t.TempDir(), "images")
	itemImages, err := images.NewFileStore(dir, imaging.ItemMaxDimension)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	avatars := &images.FileStore{Dir: dir, MaxDimension: imaging.AvatarMaxDimension}

	cat := catalog.New(database, itemImages, log)
	router := NewRouter(Deps{
		Catalog:  cat,
		Ledger:   ledger.New(database, cat, log),
		Accounts: account.New(database, auth.NewIssuer(testJWTSecret, 0), avatars, log),
		Log:      log,
		Limiter:  limiter,
		ImageDir: dir,
	})
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server
}

// do sends a JSON request and decodes the JSON response into out if given.
func do(t *testing.T, method, url, token string, body, out any) int {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	if out != nil {
		json.NewDecoder(resp.Body).Decode(out)
	}
	return resp.StatusCode
}

func signupUser(t *testing.T, server *httptest.Server, name, email string) string {
	t.Helper()
	var resp tokenResponse
	status := do(t, "POST", server.URL+"/api/auth/signup", "", map[string]string{
		"name": name, "email": email, "password": "Secret1", "confirmPassword": "Secret1",
	}, &resp)
	if status != http.StatusCreated {
		t.Fatalf("signup %s: expected 201, got %d", email, status)
	}
	if resp.Token == "" {
		t.Fatal("empty token from signup")
	}
	return resp.Token
}

type itemResponse struct {
	Item struct {
		ID       string   `json:"id"`
		Name     string   `json:"name"`
		Price    int      `json:"price"`
		Sold     bool     `json:"sold"`
		SellerID string   `json:"seller_id"`
		Images   []string `json:"images"`
	} `json:"item"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func createItem(t *testing.T, server *httptest.Server, token, name string, price int) string {
	t.Helper()
	var resp itemResponse
	status := do(t, "POST", server.URL+"/api/items", token, map[string]any{
		"name": name, "group": "men", "category": "shoes", "price": price,
	}, &resp)
	if status != http.StatusCreated {
		t.Fatalf("create item: expected 201, got %d", status)
	}
	return resp.Item.ID
}

func TestSignupAndLogin(t *testing.T) {
	server := setupTestServer(t, nil)
	signupUser(t, server, "Ana", "ana@example.com")

	var msg messageResponse
	status := do(t, "POST", server.URL+"/api/auth/signup", "", map[string]string{
		"name": "Ana", "email": "ana@example.com", "password": "Secret1", "confirmPassword": "Secret1",
	}, &msg)
	if status != http.StatusBadRequest || msg.Message != account.MsgSignupEmailTaken {
		t.Errorf("duplicate signup: got %d %q", status, msg.Message)
	}

	var tok tokenResponse
	status = do(t, "POST", server.URL+"/api/auth/login", "", loginRequest{Email: "ana@example.com", Password: "Secret1"}, &tok)
	if status != http.StatusOK || tok.Token == "" {
		t.Fatalf("login: got %d", status)
	}

	status = do(t, "POST", server.URL+"/api/auth/login", "", loginRequest{Email: "ana@example.com", Password: "Wrong1"}, &msg)
	if status != http.StatusBadRequest || msg.Message != account.MsgInvalidCredentials {
		t.Errorf("bad login: got %d %q", status, msg.Message)
	}
}

func TestUnauthenticatedAccess(t *testing.T) {
	server := setupTestServer(t, nil)

	var msg messageResponse
	if status := do(t, "GET", server.URL+"/api/items", "", nil, &msg); status != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", status)
	}
	if msg.Message != account.MsgUnauthorized {
		t.Errorf("unexpected message %q", msg.Message)
	}
	if status := do(t, "GET", server.URL+"/api/items", "garbage", nil, nil); status != http.StatusUnauthorized {
		t.Errorf("expected 401 for bad token, got %d", status)
	}
}

func TestLogoutRevokesToken(t *testing.T) {
	server := setupTestServer(t, nil)
	token := signupUser(t, server, "Ana", "ana@example.com")

	if status := do(t, "POST", server.URL+"/api/auth/logout", token, nil, nil); status != http.StatusOK {
		t.Fatalf("logout: expected 200, got %d", status)
	}
	if status := do(t, "GET", server.URL+"/api/profile", token, nil, nil); status != http.StatusUnauthorized {
		t.Errorf("expected 401 after logout, got %d", status)
	}
}

func TestItemsAndSaleFlow(t *testing.T) {
	server := setupTestServer(t, nil)
	seller := signupUser(t, server, "Ana", "ana@example.com")
	buyer := signupUser(t, server, "Bor", "bor@example.com")
	stranger := signupUser(t, server, "Cene", "cene@example.com")

	itemID := createItem(t, server, seller, "Boots", 60)

	var page struct {
		Items      []json.RawMessage `json:"items"`
		Page       int               `json:"page"`
		Limit      int               `json:"limit"`
		TotalItems int               `json:"totalItems"`
	}
	if status := do(t, "GET", server.URL+"/api/items?q=boot&price[lte]=100", buyer, nil, &page); status != http.StatusOK {
		t.Fatalf("list items: got %d", status)
	}
	if page.TotalItems != 1 || len(page.Items) != 1 || page.Page != 1 || page.Limit != 5 {
		t.Errorf("unexpected page %+v", page)
	}

	var msg messageResponse
	if status := do(t, "GET", server.URL+"/api/items?price=10", buyer, nil, &msg); status != http.StatusBadRequest {
		t.Errorf("bare price: expected 400, got %d", status)
	}
	if msg.Message != "Incorrect price request." {
		t.Errorf("unexpected message %q", msg.Message)
	}

	if status := do(t, "PATCH", server.URL+"/api/items/"+itemID, buyer, map[string]any{"price": 1}, &msg); status != http.StatusForbidden {
		t.Errorf("non-seller update: expected 403, got %d", status)
	}

	var updated itemResponse
	if status := do(t, "PATCH", server.URL+"/api/items/"+itemID, seller, map[string]any{"price": 55}, &updated); status != http.StatusOK {
		t.Fatalf("seller update: got %d", status)
	}
	if updated.Item.Price != 55 {
		t.Errorf("expected price 55, got %d", updated.Item.Price)
	}

	if status := do(t, "POST", server.URL+"/api/items/"+itemID+"/transactions", seller, nil, nil); status != http.StatusForbidden {
		t.Errorf("buying own item: expected 403, got %d", status)
	}

	var created struct {
		Transaction struct {
			ID    string `json:"id"`
			Price int    `json:"price"`
		} `json:"transaction"`
	}
	if status := do(t, "POST", server.URL+"/api/items/"+itemID+"/transactions", buyer, nil, &created); status != http.StatusCreated {
		t.Fatalf("purchase: expected 201, got %d", status)
	}
	if created.Transaction.Price != 55 {
		t.Errorf("expected snapshot price 55, got %d", created.Transaction.Price)
	}

	if status := do(t, "POST", server.URL+"/api/items/"+itemID+"/transactions", stranger, nil, nil); status != http.StatusConflict {
		t.Errorf("second purchase: expected 409, got %d", status)
	}
	if status := do(t, "PATCH", server.URL+"/api/items/"+itemID, seller, map[string]any{"price": 70}, nil); status != http.StatusConflict {
		t.Errorf("update sold item: expected 409, got %d", status)
	}
	if status := do(t, "DELETE", server.URL+"/api/items/"+itemID, seller, nil, nil); status != http.StatusConflict {
		t.Errorf("delete sold item: expected 409, got %d", status)
	}

	txURL := server.URL + "/api/transactions/" + created.Transaction.ID
	for _, tok := range []string{seller, buyer} {
		if status := do(t, "GET", txURL, tok, nil, nil); status != http.StatusOK {
			t.Errorf("party reading transaction: expected 200, got %d", status)
		}
	}
	if status := do(t, "GET", txURL, stranger, nil, nil); status != http.StatusForbidden {
		t.Errorf("stranger reading transaction: expected 403, got %d", status)
	}
	if status := do(t, "GET", server.URL+"/api/items/"+itemID+"/transactions/"+created.Transaction.ID, buyer, nil, nil); status != http.StatusOK {
		t.Errorf("item-scoped transaction: expected 200, got %d", status)
	}

	var list struct {
		Transactions []json.RawMessage `json:"transactions"`
	}
	do(t, "GET", server.URL+"/api/transactions?type=purchases", buyer, nil, &list)
	if len(list.Transactions) != 1 {
		t.Errorf("expected 1 purchase, got %d", len(list.Transactions))
	}
	do(t, "GET", server.URL+"/api/transactions?type=sales", buyer, nil, &list)
	if len(list.Transactions) != 0 {
		t.Errorf("expected 0 sales, got %d", len(list.Transactions))
	}

	do(t, "GET", server.URL+"/api/items", buyer, nil, &page)
	if page.TotalItems != 0 {
		t.Errorf("sold item still listed: %+v", page)
	}
}

func TestItemNotFound(t *testing.T) {
	server := setupTestServer(t, nil)
	token := signupUser(t, server, "Ana", "ana@example.com")

	var msg messageResponse
	if status := do(t, "GET", server.URL+"/api/items/not-a-uuid", token, nil, &msg); status != http.StatusNotFound {
		t.Errorf("malformed id: expected 404, got %d", status)
	}
	if msg.Message != catalog.MsgInvalidItemID {
		t.Errorf("unexpected message %q", msg.Message)
	}
	if status := do(t, "GET", server.URL+"/api/items/6f1c1f4e-0000-4000-8000-000000000000", token, nil, &msg); status != http.StatusNotFound {
		t.Errorf("missing item: expected 404, got %d", status)
	}
}

func TestCreateItemMultipart(t *testing.T) {
	server := setupTestServer(t, nil)
	token := signupUser(t, server, "Ana", "ana@example.com")

	var img bytes.Buffer
	png.Encode(&img, image.NewRGBA(image.Rect(0, 0, 20, 10)))

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range map[string]string{"name": "Socks", "group": "kids", "category": "clothes", "price": "3"} {
		mw.WriteField(k, v)
	}
	mw.WriteField("tags", "wool")
	mw.WriteField("tags", "winter")
	fw, _ := mw.CreateFormFile("images", "socks.png")
	fw.Write(img.Bytes())
	mw.Close()

	req, _ := http.NewRequest("POST", server.URL+"/api/items", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("create item: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	var created itemResponse
	json.NewDecoder(resp.Body).Decode(&created)
	if created.Item.Price != 3 || len(created.Item.Images) != 1 {
		t.Fatalf("unexpected item %+v", created.Item)
	}

	imgResp, err := http.Get(server.URL + created.Item.Images[0])
	if err != nil {
		t.Fatalf("fetching image: %v", err)
	}
	imgResp.Body.Close()
	if imgResp.StatusCode != http.StatusOK {
		t.Errorf("expected stored image to be served, got %d", imgResp.StatusCode)
	}
}

func TestProfile(t *testing.T) {
	server := setupTestServer(t, nil)
	token := signupUser(t, server, "Ana", "ana@example.com")
	createItem(t, server, token, "Boots", 60)

	var prof struct {
		User struct {
			ID    string `json:"id"`
			Name  string `json:"name"`
			Email string `json:"email"`
		} `json:"user"`
	}
	if status := do(t, "GET", server.URL+"/api/profile", token, nil, &prof); status != http.StatusOK {
		t.Fatalf("get profile: got %d", status)
	}
	if prof.User.Email != "ana@example.com" {
		t.Errorf("unexpected profile %+v", prof.User)
	}

	if status := do(t, "PATCH", server.URL+"/api/profile", token, map[string]string{"name": "Ana Novak"}, &prof); status != http.StatusOK {
		t.Fatalf("update profile: got %d", status)
	}
	if prof.User.Name != "Ana Novak" {
		t.Errorf("expected updated name, got %q", prof.User.Name)
	}

	var users struct {
		Users []json.RawMessage `json:"users"`
		Page  int               `json:"page"`
		Limit int               `json:"limit"`
	}
	do(t, "GET", server.URL+"/api/users?q=novak", token, nil, &users)
	if len(users.Users) != 1 || users.Limit != 5 {
		t.Errorf("unexpected users page %+v", users)
	}
	if status := do(t, "GET", server.URL+"/api/users/"+prof.User.ID, token, nil, nil); status != http.StatusOK {
		t.Errorf("get user: expected 200, got %d", status)
	}

	var listed struct {
		Items []json.RawMessage `json:"items"`
	}
	if status := do(t, "GET", server.URL+"/api/users/"+prof.User.ID+"/items", token, nil, &listed); status != http.StatusOK {
		t.Fatalf("seller items: got %d", status)
	}
	if len(listed.Items) != 1 {
		t.Errorf("expected 1 seller item, got %d", len(listed.Items))
	}

	if status := do(t, "DELETE", server.URL+"/api/profile", token, nil, nil); status != http.StatusOK {
		t.Fatalf("delete profile: got %d", status)
	}
	if status := do(t, "GET", server.URL+"/api/profile", token, nil, nil); status != http.StatusUnauthorized {
		t.Errorf("deleted user's token: expected 401, got %d", status)
	}
}

func TestRateLimit(t *testing.T) {
	server := setupTestServer(t, ratelimit.NewMemoryLimiter(2, 0))

	for i := 0; i < 2; i++ {
		if status := do(t, "GET", server.URL+"/api/items", "", nil, nil); status != http.StatusUnauthorized {
			t.Fatalf("request %d: expected 401, got %d", i+1, status)
		}
	}
	if status := do(t, "GET", server.URL+"/api/items", "", nil, nil); status != http.StatusTooManyRequests {
		t.Errorf("expected 429 over the limit, got %d", status)
	}
}

func TestUnknownRoute(t *testing.T) {
	server := setupTestServer(t, nil)

	var msg messageResponse
	if status := do(t, "GET", server.URL+"/nope", "", nil, &msg); status != http.StatusNotFound {
		t.Errorf("expected 404, got %d", status)
	}
	if msg.Message == "" {
		t.Error("expected a JSON message")
	}
}
