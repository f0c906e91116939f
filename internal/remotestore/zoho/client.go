// Package zoho adapts the Zoho WorkDrive REST API to the remotestore.RemoteStore
// contract. It is a generalization of the teacher's internal/api/client.go
// (makeRequest/ListFiles/GetRootFolder/DownloadFile/CreateFolder/
// InitiateUpload/DeleteFile/GetFileInfo), kept on the same plain net/http +
// encoding/json plumbing — no REST client library appears anywhere in the
// retrieval pack, so every HTTP-speaking repo in it talks to its API with
// stdlib net/http directly.
package zoho

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/scottgl9/android-google-drive-sync-sub001/internal/remotestore"
	"github.com/scottgl9/android-google-drive-sync-sub001/pkg/types"
)

const (
	defaultBaseURL = "https://www.zohoapis.com/workdrive/api/v1"
	defaultTimeout = 30 * time.Second
)

// TokenSource supplies the bearer access token for each request. The auth
// package's OAuth2 client satisfies this.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
}

// Client is a RemoteStore backed by the Zoho WorkDrive REST API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	tokens     TokenSource
	appRootID  string
}

// New returns a Client rooted at appRootID, the WorkDrive folder id
// representing the application's sync root.
func New(tokens TokenSource, appRootID string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		baseURL:    defaultBaseURL,
		tokens:     tokens,
		appRootID:  appRootID,
	}
}

var _ remotestore.RemoteStore = (*Client)(nil)

// SetBaseURLForTest overrides the API base URL, for pointing the client at
// an httptest server instead of the live Zoho WorkDrive API.
func (c *Client) SetBaseURLForTest(baseURL string) {
	c.baseURL = baseURL
}

type apiItem struct {
	ID         string `json:"id"`
	Attributes struct {
		Name         string `json:"name"`
		Type         string `json:"type"`
		StorageInfo  struct {
			Size string `json:"size"`
		} `json:"storage_info"`
		ModifiedTime string `json:"modified_time"`
		MD5Checksum  string `json:"md5_checksum"`
		ParentID     string `json:"parent_id"`
	} `json:"attributes"`
}

type apiResponse struct {
	Data []apiItem `json:"data"`
}

type apiSingleResponse struct {
	Data apiItem `json:"data"`
}

type apiErrorBody struct {
	Errors []struct {
		Title  string `json:"title"`
		Status string `json:"status"`
	} `json:"errors"`
}

// makeRequest issues an authenticated HTTP request against the WorkDrive
// API and maps non-2xx responses to a classified *types.SyncError, grounded
// on the teacher's ClassifyHTTPError status-code switch.
func (c *Client) makeRequest(ctx context.Context, method, pathSuffix string, query url.Values, body io.Reader, headers map[string]string) (*http.Response, error) {
	token, err := c.tokens.AccessToken(ctx)
	if err != nil {
		return nil, types.NewSyncError(types.ErrorClassAuth, types.CodeNotSignedIn, "resolve access token", err)
	}

	u := c.baseURL + pathSuffix
	if query != nil {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, types.NewSyncError(types.ErrorClassTransport, types.CodeTransportError, "build request", err)
	}
	req.Header.Set("Authorization", "Zoho-oauthtoken "+token)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, types.NewSyncError(types.ErrorClassTransport, types.CodeNetworkUnavailable, "send request", err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}

	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	return nil, classifyHTTPError(resp.StatusCode, raw)
}

// classifyHTTPError maps a WorkDrive HTTP status to a *types.SyncError,
// generalized from the teacher's internal/sync/error_handling.go
// ClassifyHTTPError switch.
func classifyHTTPError(status int, body []byte) error {
	message := string(body)
	var parsed apiErrorBody
	if json.Unmarshal(body, &parsed) == nil && len(parsed.Errors) > 0 {
		message = parsed.Errors[0].Title
	}

	switch {
	case status == http.StatusUnauthorized:
		return types.NewSyncError(types.ErrorClassAuth, types.CodeNotSignedIn, message, nil)
	case status == http.StatusForbidden:
		return types.NewSyncError(types.ErrorClassAuth, types.CodePermissionDenied, message, nil)
	case status == http.StatusNotFound:
		return types.NewSyncError(types.ErrorClassRemote, types.CodeNotFound, message, nil)
	case status == http.StatusTooManyRequests:
		return types.NewSyncError(types.ErrorClassRateLimited, types.CodeRateLimited, message, nil)
	case status == 507 || status == 409 && strings.Contains(strings.ToLower(message), "quota"):
		return types.NewSyncError(types.ErrorClassRemote, types.CodeQuotaExceeded, message, nil)
	case status >= 500:
		return types.NewSyncError(types.ErrorClassServiceUnavailable, types.CodeServiceUnavailable, message, nil)
	case status == http.StatusRequestTimeout || status == 425:
		return types.NewSyncError(types.ErrorClassTransport, types.CodeTransportError, message, nil)
	default:
		return types.NewSyncError(types.ErrorClassRemote, types.CodeRemoteOther, fmt.Sprintf("status %d: %s", status, message), nil)
	}
}

func parseItem(item apiItem) remotestore.Entry {
	size, _ := strconv.ParseUint(item.Attributes.StorageInfo.Size, 10, 64)
	modified, _ := time.Parse(time.RFC3339, item.Attributes.ModifiedTime)
	return remotestore.Entry{
		RemoteID:     item.ID,
		Name:         item.Attributes.Name,
		IsDir:        item.Attributes.Type == "folder",
		Size:         size,
		ModifiedTime: modified,
		Checksum:     strings.ToLower(item.Attributes.MD5Checksum),
	}
}

// AccountRootID resolves the id of the account's top-level "My Folders"
// root, grounded on the teacher's api.Client.GetRootFolder (a bare GET
// /files with no folder id in the path). Callers use this once, before
// New, to discover the id to pass as appRootID — or, when the account root
// should itself be the sync root, on its own.
func (c *Client) AccountRootID(ctx context.Context) (string, error) {
	resp, err := c.makeRequest(ctx, http.MethodGet, "/files", nil, nil, nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var parsed apiSingleResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", types.NewSyncError(types.ErrorClassTransport, types.CodeTransportError, "decode root folder response", err)
	}
	return parsed.Data.ID, nil
}

// listChildren returns the immediate children of folderID.
func (c *Client) listChildren(ctx context.Context, folderID string) ([]apiItem, error) {
	resp, err := c.makeRequest(ctx, http.MethodGet, "/files/"+folderID+"/files", nil, nil, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var parsed apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, types.NewSyncError(types.ErrorClassTransport, types.CodeTransportError, "decode list response", err)
	}
	return parsed.Data, nil
}

// EnsureFolderStructure walks from the app root, creating any missing
// folder along dir's segments, and returns the id of the final folder.
func (c *Client) EnsureFolderStructure(ctx context.Context, dir types.Path) (string, error) {
	currentID := c.appRootID
	if string(dir) == "" {
		return currentID, nil
	}

	segments := strings.Split(string(dir), "/")
	for _, segment := range segments {
		children, err := c.listChildren(ctx, currentID)
		if err != nil {
			return "", err
		}

		var found *apiItem
		for i := range children {
			if children[i].Attributes.Type == "folder" && children[i].Attributes.Name == segment {
				found = &children[i]
				break
			}
		}

		if found != nil {
			currentID = found.ID
			continue
		}

		id, err := c.createFolder(ctx, currentID, segment)
		if err != nil {
			return "", err
		}
		currentID = id
	}

	return currentID, nil
}

func (c *Client) createFolder(ctx context.Context, parentID, name string) (string, error) {
	payload := map[string]interface{}{
		"data": map[string]interface{}{
			"attributes": map[string]interface{}{
				"name":      name,
				"parent_id": parentID,
			},
			"type": "files",
		},
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return "", types.NewSyncError(types.ErrorClassLocal, types.CodeIOError, "encode create-folder payload", err)
	}

	resp, err := c.makeRequest(ctx, http.MethodPost, "/files", nil, bytes.NewReader(encoded),
		map[string]string{"Content-Type": "application/json"})
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var parsed apiSingleResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", types.NewSyncError(types.ErrorClassTransport, types.CodeTransportError, "decode create-folder response", err)
	}
	return parsed.Data.ID, nil
}

// ListRecursive walks the folder tree rooted at root, returning every file
// (skipping folders) with paths relative to root.
func (c *Client) ListRecursive(ctx context.Context, root types.Path) ([]remotestore.Entry, error) {
	rootID, err := c.EnsureFolderStructure(ctx, root)
	if err != nil {
		return nil, err
	}

	var out []remotestore.Entry
	var walk func(folderID string, prefix string) error
	walk = func(folderID string, prefix string) error {
		children, err := c.listChildren(ctx, folderID)
		if err != nil {
			return err
		}
		for _, child := range children {
			relPath := child.Attributes.Name
			if prefix != "" {
				relPath = path.Join(prefix, child.Attributes.Name)
			}
			if child.Attributes.Type == "folder" {
				if err := walk(child.ID, relPath); err != nil {
					return err
				}
				continue
			}
			entry := parseItem(child)
			normalized, err := types.NormalizePath(relPath)
			if err != nil {
				continue
			}
			entry.RelativePath = normalized
			out = append(out, entry)
		}
		return nil
	}

	if err := walk(rootID, ""); err != nil {
		return nil, err
	}
	return out, nil
}

// Upload streams content to relPath under the app root, creating
// intermediate folders as needed.
func (c *Client) Upload(ctx context.Context, relPath types.Path, content io.Reader, size uint64) (remotestore.Entry, error) {
	dir := relPath.Dir()
	parentID, err := c.EnsureFolderStructure(ctx, types.Path(dir))
	if err != nil {
		return remotestore.Entry{}, err
	}

	var buf bytes.Buffer
	writer := newMultipartUpload(&buf, relPath.Name(), parentID)
	if _, err := io.Copy(writer, content); err != nil {
		return remotestore.Entry{}, types.NewSyncError(types.ErrorClassLocal, types.CodeIOError, "read upload content", err)
	}
	contentType, err := writer.Close()
	if err != nil {
		return remotestore.Entry{}, types.NewSyncError(types.ErrorClassLocal, types.CodeIOError, "finalize multipart body", err)
	}

	resp, err := c.makeRequest(ctx, http.MethodPost, "/upload", nil, &buf,
		map[string]string{"Content-Type": contentType})
	if err != nil {
		return remotestore.Entry{}, err
	}
	defer resp.Body.Close()

	var parsed apiSingleResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return remotestore.Entry{}, types.NewSyncError(types.ErrorClassTransport, types.CodeTransportError, "decode upload response", err)
	}

	entry := parseItem(parsed.Data)
	entry.RelativePath = relPath
	return entry, nil
}

// Download opens a stream for remoteID. The caller must Close it.
func (c *Client) Download(ctx context.Context, remoteID string) (io.ReadCloser, error) {
	resp, err := c.makeRequest(ctx, http.MethodGet, "/download/"+remoteID, nil, nil, nil)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// Delete removes remoteID. A 404 from the API is treated as success.
func (c *Client) Delete(ctx context.Context, remoteID string) error {
	resp, err := c.makeRequest(ctx, http.MethodDelete, "/files/"+remoteID, nil, nil, nil)
	if err != nil {
		if types.IsCode(err, types.CodeNotFound) {
			return nil
		}
		return err
	}
	resp.Body.Close()
	return nil
}

// FindByName looks up a single file by its relative path, walking folders
// segment by segment.
func (c *Client) FindByName(ctx context.Context, relPath types.Path) (remotestore.Entry, bool, error) {
	dir := relPath.Dir()
	parentID, err := c.EnsureFolderStructure(ctx, types.Path(dir))
	if err != nil {
		return remotestore.Entry{}, false, err
	}

	children, err := c.listChildren(ctx, parentID)
	if err != nil {
		return remotestore.Entry{}, false, err
	}

	name := relPath.Name()
	for _, child := range children {
		if child.Attributes.Type != "folder" && child.Attributes.Name == name {
			entry := parseItem(child)
			entry.RelativePath = relPath
			return entry, true, nil
		}
	}
	return remotestore.Entry{}, false, nil
}
