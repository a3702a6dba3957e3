package portal

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"schoolsync_go/models"
)

// ServiceName is the Integration.Service value for the school portal.
const ServiceName = "portal"

const sessionCookie = "auth_token"

// Reconciler pairs the task snapshots taken around a sync round and
// queues any conflicts it finds.
type Reconciler interface {
	SyncWithConflictResolution(before, after []models.Task)
}

// Client scrapes the school portal. Fetches re-authorize on every call
// because the portal expires sessions aggressively; the fresh token is
// persisted so a restart can reuse it.
type Client struct {
	db         *gorm.DB
	http       *http.Client
	baseURL    string
	reconciler Reconciler

	nameIdent  models.IdentityStrategy
	freshIdent models.IdentityStrategy
}

func NewClient(db *gorm.DB, baseURL string, reconciler Reconciler) *Client {
	return &Client{
		db:         db,
		http:       &http.Client{Timeout: 30 * time.Second},
		baseURL:    strings.TrimRight(baseURL, "/"),
		reconciler: reconciler,
		nameIdent:  models.NameKeyedIdentity{},
		freshIdent: models.FreshIdentity{},
	}
}

func (c *Client) integration() (*models.Integration, *SyncError) {
	var integ models.Integration
	if err := c.db.Where("service = ?", ServiceName).First(&integ).Error; err != nil {
		return nil, &SyncError{Kind: KindNotConfigured, Msg: "portal integration is not configured", Err: err}
	}
	if integ.Login == "" || integ.PasswordEnc == "" {
		return nil, &SyncError{Kind: KindNotConfigured, Msg: "portal credentials are not set"}
	}
	return &integ, nil
}

// Authorize posts the stored credentials and persists the session
// token from the response cookies.
func (c *Client) Authorize(ctx context.Context) error {
	integ, serr := c.integration()
	if serr != nil {
		return serr
	}

	form := url.Values{
		"username": {integ.Login},
		"password": {integ.PasswordEnc},
		"remember": {"1"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/ajaxauthorize", strings.NewReader(form.Encode()))
	if err != nil {
		return &SyncError{Kind: KindNetwork, Msg: "building authorization request", Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")

	resp, err := c.http.Do(req)
	if err != nil {
		return wrapTransport("authorization", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return wrapTransport("reading authorization response", err)
	}

	token, serr := classifyAuthResponse(resp.StatusCode, string(body), resp.Cookies())
	if serr != nil {
		return serr
	}

	integ.Token = token
	if err := c.db.Save(integ).Error; err != nil {
		return &SyncError{Kind: KindAuth, Msg: "persisting session token", Err: err}
	}

	logrus.WithFields(logrus.Fields{
		"service": ServiceName,
		"login":   integ.Login,
	}).Info("portal authorization succeeded")
	return nil
}

// fetchDocument authorizes, then GETs a portal page with the session
// cookie and parses it.
func (c *Client) fetchDocument(ctx context.Context, path string) (*goquery.Document, *models.Integration, error) {
	if err := c.Authorize(ctx); err != nil {
		logrus.WithFields(logrus.Fields{"path": path, "error": err.Error()}).
			Error("portal fetch blocked by authorization failure")
		return nil, nil, err
	}
	integ, serr := c.integration()
	if serr != nil {
		return nil, nil, serr
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, nil, &SyncError{Kind: KindNetwork, Msg: "building request for " + path, Err: err}
	}
	req.AddCookie(&http.Cookie{Name: sessionCookie, Value: integ.Token})

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, nil, wrapTransport("fetching "+path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, nil, &SyncError{Kind: KindServer, Msg: "portal returned status " + resp.Status + " for " + path}
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, nil, &SyncError{Kind: KindParse, Msg: "parsing " + path, Err: err}
	}
	return doc, integ, nil
}

// absoluteURL resolves portal-relative attachment links.
func (c *Client) absoluteURL(href string) string {
	if strings.HasPrefix(href, "http") {
		return href
	}
	return c.baseURL + href
}

// SyncAllData runs one full sync round: authorize once up front, fetch
// the four portal pages sequentially without short-circuiting, then
// reconcile task changes against the pre-round snapshot. Returns true
// only when every fetch succeeded.
func (c *Client) SyncAllData(ctx context.Context) bool {
	if err := c.Authorize(ctx); err != nil {
		logrus.WithField("error", err.Error()).Error("sync aborted, portal authorization failed")
		return false
	}

	var before []models.Task
	c.db.Find(&before)

	results := []error{
		c.FetchSchedule(ctx),
		c.FetchTasks(ctx),
		c.FetchMessages(ctx),
		c.FetchReplacements(ctx),
	}

	var after []models.Task
	c.db.Find(&after)

	if c.reconciler != nil {
		c.reconciler.SyncWithConflictResolution(before, after)
	}

	ok := true
	for _, err := range results {
		if err != nil {
			logrus.WithField("error", err.Error()).Warn("sync step finished with error")
			ok = false
		}
	}
	if ok {
		logrus.Info("portal sync completed without errors")
	}
	return ok
}

// upsert writes a record replacing any existing row with the same key.
func (c *Client) upsert(value interface{}) error {
	return c.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(value).Error
}

// marshalExtracted encodes classifier output for the JSON column.
func marshalExtracted(data map[string][]string) models.JSON {
	if len(data) == 0 {
		return nil
	}
	b, err := json.Marshal(data)
	if err != nil {
		return nil
	}
	return models.JSON(b)
}
