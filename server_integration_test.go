package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/EricBellDesigns/blackplum-wealth-platform/models"
	"github.com/EricBellDesigns/blackplum-wealth-platform/pkg/blob"
	"github.com/EricBellDesigns/blackplum-wealth-platform/pkg/mailer"
	"github.com/EricBellDesigns/blackplum-wealth-platform/pkg/offering"
)

// helper to perform requests with auth token
func performRequest(r http.Handler, method, path string, body io.Reader, token string, contentType string) *httptest.ResponseRecorder {
	// allow callers to pass nil for body safely
	req, _ := http.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func setupTestServer(t *testing.T) *gin.Engine {
	// integration tests are opt-in. Set DB_DSN_TEST=1 and DB_DSN to run them.
	if os.Getenv("DB_DSN_TEST") != "1" {
		t.Skip("integration tests are disabled; set DB_DSN_TEST=1 to enable")
	}
	gin.SetMode(gin.TestMode)
	_ = os.Setenv("UPLOAD_BASE", t.TempDir())
	jwtSecret = []byte("test-secret")
	resetSecret = jwtSecret
	initDB()
	local, err := blob.NewLocalStore(uploadBaseDir())
	if err != nil {
		t.Fatalf("blob store: %v", err)
	}
	blobs = local
	offeringStore = offering.NewStore(db, blobs)
	mail = &mailer.LogMailer{BaseURL: "http://localhost:8080"}
	r := gin.Default()
	setupRoutes(r)
	return r
}

// ensureTestAdmin creates (or reuses) an admin account with a known password
// and returns its id and email.
func ensureTestAdmin(t *testing.T, email, password string) string {
	t.Helper()
	var admin models.Admin
	if err := db.Where("email = ?", email).First(&admin).Error; err == nil {
		return admin.ID
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	admin = models.Admin{Name: "Test Admin", Email: email, Password: string(hashed)}
	if err := db.Create(&admin).Error; err != nil {
		t.Fatalf("create admin: %v", err)
	}
	t.Cleanup(func() { db.Unscoped().Delete(&models.Admin{}, "id = ?", admin.ID) })
	return admin.ID
}

func loginAs(t *testing.T, r http.Handler, path, email, password string) string {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"email": email, "password": password})
	resp := performRequest(r, http.MethodPost, path, bytes.NewBuffer(body), "", "application/json")
	if resp.Code != 200 {
		t.Fatalf("login %s failed status=%d body=%s", path, resp.Code, resp.Body.String())
	}
	var loginResp map[string]any
	_ = json.Unmarshal(resp.Body.Bytes(), &loginResp)
	token, _ := loginResp["token"].(string)
	if token == "" {
		t.Fatalf("empty token in login response: %+v", loginResp)
	}
	return token
}

var offeringFormFields = map[string]string{
	"title":                    "Single Family Residence in Sacramento",
	"offering_type":            "Trust Deed",
	"target_funding_date":      "2026-10-01",
	"minimum_investment":       "25000",
	"total_capital_investment": "350000",
	"monthly_pmt_to_investor":  "1750.50",
	"investor_yield":           "9.5",
	"gross_protective_equity":  "120000",
	"property_address":         "123 Main St, Sacramento, CA",
	"property_type":            "SFR",
	"occupancy":                "owner",
	"market_value":             "470000",
	"borrower_credit_score":    "710",
	"loan_type":                "purchase",
	"lien_position":            "1st",
	"payment_type":             "interest_only",
	"loan_term":                "12 months",
	"existing_first_mortgage":  "true",
}

// offeringForm builds a multipart body with the standard fields plus the given
// picture file names; extra overrides or adds scalar fields.
func offeringForm(t *testing.T, pictures []string, extra map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	fields := map[string]string{}
	for k, v := range offeringFormFields {
		fields[k] = v
	}
	for k, v := range extra {
		fields[k] = v
	}
	for k, v := range fields {
		_ = mw.WriteField(k, v)
	}
	for _, name := range pictures {
		w, _ := mw.CreateFormFile("pictures", name)
		_, _ = w.Write([]byte("fake image bytes"))
	}
	_ = mw.Close()
	return buf, mw.FormDataContentType()
}

func TestFullFlow(t *testing.T) {
	r := setupTestServer(t)

	stamp := time.Now().UnixNano()
	email := fmt.Sprintf("investor%d@example.com", stamp)
	adminEmail := fmt.Sprintf("admin%d@example.com", stamp)
	adminID := ensureTestAdmin(t, adminEmail, "admin-pass")

	// 1. Register investor with questionnaire
	regBody, _ := json.Marshal(map[string]any{
		"name":                 "Investor One",
		"email":                email,
		"password":             "secret123",
		"residency_status":     models.ResidencyIndividualCalifornia,
		"investing_experience": models.ExperienceNew,
		"questionnaire":        map[string]any{"net_worth": "over_1m", "accredited": true},
	})
	resp := performRequest(r, http.MethodPost, "/register", bytes.NewBuffer(regBody), "", "application/json")
	if resp.Code != 200 {
		t.Fatalf("register failed status=%d body=%s", resp.Code, resp.Body.String())
	}
	t.Cleanup(func() { db.Unscoped().Delete(&models.Investor{}, "email = ?", email) })

	// 2. Login before confirmation must be rejected
	loginBody, _ := json.Marshal(map[string]string{"email": email, "password": "secret123"})
	resp = performRequest(r, http.MethodPost, "/login", bytes.NewBuffer(loginBody), "", "application/json")
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for unconfirmed login got %d body=%s", resp.Code, resp.Body.String())
	}

	// 3. Confirm via emailed code (read from DB since the mailer only logs)
	var investor models.Investor
	if err := db.Where("email = ?", email).First(&investor).Error; err != nil {
		t.Fatalf("load investor: %v", err)
	}
	resp = performRequest(r, http.MethodGet, "/account/confirm?code="+investor.ConfirmationCode, nil, "", "")
	if resp.Code != http.StatusFound {
		t.Fatalf("confirm failed status=%d", resp.Code)
	}
	if loc := resp.Header().Get("Location"); loc != "/login?confirmed=true" {
		t.Fatalf("unexpected confirm redirect %q", loc)
	}

	// 4. Investor and admin logins
	investorToken := loginAs(t, r, "/login", email, "secret123")
	adminToken := loginAs(t, r, "/admin/login", adminEmail, "admin-pass")

	// 5. Create an offering with two pictures; smuggled admin_id must be ignored
	body, ct := offeringForm(t, []string{"front.jpg", "back.jpg"}, map[string]string{
		"admin_id": "00000000-0000-0000-0000-000000000000",
	})
	resp = performRequest(r, http.MethodPost, "/offerings", body, adminToken, ct)
	if resp.Code != 200 {
		t.Fatalf("create offering failed status=%d body=%s", resp.Code, resp.Body.String())
	}
	var created models.Offering
	_ = json.Unmarshal(resp.Body.Bytes(), &created)
	if created.ID == "" {
		t.Fatalf("created offering has no id: %s", resp.Body.String())
	}
	t.Cleanup(func() { db.Unscoped().Delete(&models.Offering{}, "id = ?", created.ID) })
	if created.AdminID != adminID {
		t.Fatalf("admin_id not forced from session: got %s want %s", created.AdminID, adminID)
	}
	if len(created.Pictures) != 2 {
		t.Fatalf("expected 2 pictures got %d", len(created.Pictures))
	}

	// 6. Creating without pictures must fail with the picture message
	body, ct = offeringForm(t, nil, nil)
	resp = performRequest(r, http.MethodPost, "/offerings", body, adminToken, ct)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for pictureless create got %d body=%s", resp.Code, resp.Body.String())
	}
	if !bytes.Contains(resp.Body.Bytes(), []byte("Please upload one or more pictures.")) {
		t.Fatalf("missing picture validation message: %s", resp.Body.String())
	}

	// 7. Edit: delete both pictures while adding one must succeed with one left
	deletes, _ := json.Marshal([]map[string]string{
		{"id": created.Pictures[0].ID},
		{"id": created.Pictures[1].ID},
	})
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	_ = mw.WriteField("title", "Updated Sacramento Residence")
	_ = mw.WriteField("pictures_to_delete", string(deletes))
	w, _ := mw.CreateFormFile("pictures_to_add", "replacement.jpg")
	_, _ = w.Write([]byte("fresh image bytes"))
	_ = mw.Close()
	resp = performRequest(r, http.MethodPut, "/offerings/"+created.ID, buf, adminToken, mw.FormDataContentType())
	if resp.Code != 200 {
		t.Fatalf("edit failed status=%d body=%s", resp.Code, resp.Body.String())
	}
	var edited models.Offering
	_ = json.Unmarshal(resp.Body.Bytes(), &edited)
	if edited.Title != "Updated Sacramento Residence" {
		t.Fatalf("title not updated: %s", edited.Title)
	}
	if len(edited.Pictures) != 1 {
		t.Fatalf("expected 1 picture after reconciliation got %d", len(edited.Pictures))
	}

	// 8. Edit deleting the last picture with no replacement must be rejected
	// and leave the row untouched
	deletes, _ = json.Marshal([]map[string]string{{"id": edited.Pictures[0].ID}})
	buf = &bytes.Buffer{}
	mw = multipart.NewWriter(buf)
	_ = mw.WriteField("pictures_to_delete", string(deletes))
	_ = mw.Close()
	resp = performRequest(r, http.MethodPut, "/offerings/"+created.ID, buf, adminToken, mw.FormDataContentType())
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for last-picture delete got %d body=%s", resp.Code, resp.Body.String())
	}
	var pictureCount int64
	db.Model(&models.OfferingPicture{}).Where("offering_id = ?", created.ID).Count(&pictureCount)
	if pictureCount != 1 {
		t.Fatalf("picture rows changed after rejected edit: %d", pictureCount)
	}

	// 9. Investors can read but not write
	resp = performRequest(r, http.MethodGet, "/offerings", nil, investorToken, "")
	if resp.Code != 200 {
		t.Fatalf("list offerings failed status=%d body=%s", resp.Code, resp.Body.String())
	}
	var listResp struct {
		Offerings []models.Offering `json:"offerings"`
		PageSize  int               `json:"pageSize"`
		TotalNum  int64             `json:"totalNum"`
	}
	_ = json.Unmarshal(resp.Body.Bytes(), &listResp)
	if listResp.PageSize != offering.PageSize || listResp.TotalNum < 1 {
		t.Fatalf("unexpected list response: %s", resp.Body.String())
	}
	resp = performRequest(r, http.MethodGet, "/offerings/"+created.ID, nil, investorToken, "")
	if resp.Code != 200 {
		t.Fatalf("get offering failed status=%d body=%s", resp.Code, resp.Body.String())
	}
	body, ct = offeringForm(t, []string{"a.jpg"}, nil)
	resp = performRequest(r, http.MethodPost, "/offerings", body, investorToken, ct)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for investor create got %d", resp.Code)
	}

	// 10. Unauthenticated access is rejected
	resp = performRequest(r, http.MethodGet, "/offerings", nil, "", "")
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for anonymous list got %d", resp.Code)
	}

	// 11. Delete cascades attachment rows
	resp = performRequest(r, http.MethodDelete, "/offerings/"+created.ID, nil, adminToken, "")
	if resp.Code != 200 || resp.Body.String() != "1" {
		t.Fatalf("delete failed status=%d body=%s", resp.Code, resp.Body.String())
	}
	db.Model(&models.OfferingPicture{}).Where("offering_id = ?", created.ID).Count(&pictureCount)
	if pictureCount != 0 {
		t.Fatalf("picture rows survived offering delete: %d", pictureCount)
	}
}

func TestPasswordResetFlow(t *testing.T) {
	r := setupTestServer(t)

	email := fmt.Sprintf("reset%d@example.com", time.Now().UnixNano())
	regBody, _ := json.Marshal(map[string]any{
		"name":                 "Reset Tester",
		"email":                email,
		"password":             "original123",
		"residency_status":     models.ResidencyNonCalifornia,
		"investing_experience": models.ExperienceExperienced,
	})
	resp := performRequest(r, http.MethodPost, "/register", bytes.NewBuffer(regBody), "", "application/json")
	if resp.Code != 200 {
		t.Fatalf("register failed status=%d body=%s", resp.Code, resp.Body.String())
	}
	t.Cleanup(func() { db.Unscoped().Delete(&models.Investor{}, "email = ?", email) })
	db.Model(&models.Investor{}).Where("email = ?", email).Update("confirmed", true)

	// request a reset code
	resetBody, _ := json.Marshal(map[string]string{"email": email})
	resp = performRequest(r, http.MethodPost, "/password/reset", bytes.NewBuffer(resetBody), "", "application/json")
	if resp.Code != 200 {
		t.Fatalf("password reset failed status=%d body=%s", resp.Code, resp.Body.String())
	}
	var resetResp map[string]string
	_ = json.Unmarshal(resp.Body.Bytes(), &resetResp)
	code := resetResp["reset_code"]
	if code == "" {
		t.Fatalf("no reset_code in response: %s", resp.Body.String())
	}

	// change the password with the code
	changeBody, _ := json.Marshal(map[string]string{"email": email, "password": "changed456", "reset_code": code})
	resp = performRequest(r, http.MethodPost, "/password/change", bytes.NewBuffer(changeBody), "", "application/json")
	if resp.Code != 200 {
		t.Fatalf("password change failed status=%d body=%s", resp.Code, resp.Body.String())
	}

	// the code is bound to the old password hash; reusing it must fail
	resp = performRequest(r, http.MethodPost, "/password/change", bytes.NewBuffer(changeBody), "", "application/json")
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for reused reset code got %d", resp.Code)
	}

	// old password no longer works, new one does
	loginBody, _ := json.Marshal(map[string]string{"email": email, "password": "original123"})
	resp = performRequest(r, http.MethodPost, "/login", bytes.NewBuffer(loginBody), "", "application/json")
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for old password got %d", resp.Code)
	}
	loginBody, _ = json.Marshal(map[string]string{"email": email, "password": "changed456"})
	resp = performRequest(r, http.MethodPost, "/login", bytes.NewBuffer(loginBody), "", "application/json")
	if resp.Code != 200 {
		t.Fatalf("login with new password failed status=%d body=%s", resp.Code, resp.Body.String())
	}
}

func TestRefreshTokenRotation(t *testing.T) {
	r := setupTestServer(t)

	adminEmail := fmt.Sprintf("rot%d@example.com", time.Now().UnixNano())
	ensureTestAdmin(t, adminEmail, "admin-pass")
	body, _ := json.Marshal(map[string]string{"email": adminEmail, "password": "admin-pass"})
	resp := performRequest(r, http.MethodPost, "/admin/login", bytes.NewBuffer(body), "", "application/json")
	if resp.Code != 200 {
		t.Fatalf("admin login failed status=%d body=%s", resp.Code, resp.Body.String())
	}
	var loginResp map[string]string
	_ = json.Unmarshal(resp.Body.Bytes(), &loginResp)
	refresh := loginResp["refresh_token"]
	if refresh == "" {
		t.Fatalf("no refresh token: %s", resp.Body.String())
	}

	// exchange rotates the token
	refBody, _ := json.Marshal(map[string]string{"refresh_token": refresh})
	resp = performRequest(r, http.MethodPost, "/refresh", bytes.NewBuffer(refBody), "", "application/json")
	if resp.Code != 200 {
		t.Fatalf("refresh failed status=%d body=%s", resp.Code, resp.Body.String())
	}
	var refResp map[string]string
	_ = json.Unmarshal(resp.Body.Bytes(), &refResp)
	if refResp["refresh_token"] == "" || refResp["refresh_token"] == refresh {
		t.Fatalf("refresh token not rotated: %s", resp.Body.String())
	}

	// the old token is revoked after rotation
	resp = performRequest(r, http.MethodPost, "/refresh", bytes.NewBuffer(refBody), "", "application/json")
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for rotated-out refresh token got %d", resp.Code)
	}

	// revoking the new token works
	revBody, _ := json.Marshal(map[string]string{"refresh_token": refResp["refresh_token"]})
	resp = performRequest(r, http.MethodPost, "/revoke_refresh", bytes.NewBuffer(revBody), "", "application/json")
	if resp.Code != 200 {
		t.Fatalf("revoke failed status=%d body=%s", resp.Code, resp.Body.String())
	}
}

func TestMigrateCommand(t *testing.T) {
	if os.Getenv("DB_DSN_TEST") != "1" {
		t.Skip("integration tests are disabled; set DB_DSN_TEST=1 to enable")
	}
	initDB()
}
