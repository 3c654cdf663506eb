package graph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"echo-assistant-be/pkg/store"
)

func searchSegment(phrase string) string {
	return "search(q='" + url.PathEscape(strings.ReplaceAll(phrase, "'", "''")) + "')"
}

func decodeItems(body []byte) ([]driveItem, string, error) {
	var page collection[driveItem]
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, "", fmt.Errorf("decode items: %w", err)
	}
	return page.Value, page.NextLink, nil
}

func toHits(items []driveItem) []SearchHit {
	hits := make([]SearchHit, 0, len(items))
	for _, it := range items {
		hits = append(hits, SearchHit{ID: it.ID, Name: it.Name, DriveID: it.driveID()})
	}
	return hits
}

// SearchMyDrive searches the caller's personal drive root.
func (c *Client) SearchMyDrive(ctx context.Context, cred *Credential, phrase string) ([]SearchHit, error) {
	body, err := c.get(ctx, cred, c.baseURL+"/me/drive/root/"+searchSegment(phrase))
	if err != nil {
		return nil, err
	}
	items, _, err := decodeItems(body)
	if err != nil {
		return nil, err
	}
	return toHits(items), nil
}

// SearchDrive searches one drive. Only the first result page is read.
func (c *Client) SearchDrive(ctx context.Context, cred *Credential, driveID, phrase string) ([]SearchHit, error) {
	body, err := c.get(ctx, cred, c.baseURL+"/drives/"+url.PathEscape(driveID)+"/"+searchSegment(phrase))
	if err != nil {
		return nil, err
	}
	items, _, err := decodeItems(body)
	if err != nil {
		return nil, err
	}
	return toHits(items), nil
}

// listAll follows @odata.nextLink until exhausted. A failing page ends the
// enumeration and returns what was collected so far with the error.
func listAll[T any](ctx context.Context, c *Client, cred *Credential, first string) ([]T, error) {
	var out []T
	next := first
	for next != "" {
		body, err := c.get(ctx, cred, next)
		if err != nil {
			return out, err
		}
		var page collection[T]
		if err := json.Unmarshal(body, &page); err != nil {
			return out, fmt.Errorf("decode page: %w", err)
		}
		out = append(out, page.Value...)
		next = page.NextLink
	}
	return out, nil
}

// ListSites enumerates every site the caller can discover.
func (c *Client) ListSites(ctx context.Context, cred *Credential) ([]Site, error) {
	return listAll[Site](ctx, c, cred, c.baseURL+"/sites?search=*")
}

func (c *Client) ListSiteDrives(ctx context.Context, cred *Credential, siteID string) ([]Drive, error) {
	return listAll[Drive](ctx, c, cred, c.baseURL+"/sites/"+url.PathEscape(siteID)+"/drives")
}

// GetItem fetches full item metadata, including the pre-authenticated
// download URL that search results omit.
func (c *Client) GetItem(ctx context.Context, cred *Credential, driveID, itemID, container string) (store.FileCandidate, error) {
	u := c.baseURL + "/drives/" + url.PathEscape(driveID) + "/items/" + url.PathEscape(itemID)
	body, err := c.get(ctx, cred, u)
	if err != nil {
		return store.FileCandidate{}, err
	}
	var item driveItem
	if err := json.Unmarshal(body, &item); err != nil {
		return store.FileCandidate{}, fmt.Errorf("decode item: %w", err)
	}
	return item.toCandidate(container), nil
}

// RecentFiles lists the caller's recently used files, tagged personal.
func (c *Client) RecentFiles(ctx context.Context, cred *Credential) ([]store.FileCandidate, error) {
	body, err := c.get(ctx, cred, c.baseURL+"/me/drive/recent")
	if err != nil {
		return nil, err
	}
	items, _, err := decodeItems(body)
	if err != nil {
		return nil, err
	}
	out := make([]store.FileCandidate, 0, len(items))
	for _, it := range items {
		out = append(out, it.toCandidate(store.PersonalContainer))
	}
	return out, nil
}

func (c *Client) permissionsURL(f store.FileCandidate) string {
	id := url.PathEscape(f.ID)
	switch {
	case f.DriveID != "":
		return c.baseURL + "/drives/" + url.PathEscape(f.DriveID) + "/items/" + id + "/permissions"
	case f.ContainerID != "" && f.ContainerID != store.PersonalContainer:
		return c.baseURL + "/sites/" + url.PathEscape(f.ContainerID) + "/drive/items/" + id + "/permissions"
	default:
		return c.baseURL + "/me/drive/items/" + id + "/permissions"
	}
}

// CheckAccess reports whether the caller holds at least one permission record
// on the item. Any status other than 200 means no access.
func (c *Client) CheckAccess(ctx context.Context, cred *Credential, f store.FileCandidate) (bool, error) {
	body, err := c.get(ctx, cred, c.permissionsURL(f))
	if err != nil {
		var se *StatusError
		if errors.As(err, &se) {
			return false, nil
		}
		return false, err
	}
	var page collection[Permission]
	if err := json.Unmarshal(body, &page); err != nil {
		return false, fmt.Errorf("decode permissions: %w", err)
	}
	return len(page.Value) > 0, nil
}

// Me returns the signed-in user's profile.
func (c *Client) Me(ctx context.Context, cred *Credential) (Profile, error) {
	body, err := c.get(ctx, cred, c.baseURL+"/me")
	if err != nil {
		return Profile{}, err
	}
	var p Profile
	if err := json.Unmarshal(body, &p); err != nil {
		return Profile{}, fmt.Errorf("decode profile: %w", err)
	}
	return p, nil
}

type mailRecipient struct {
	EmailAddress struct {
		Address string `json:"address"`
	} `json:"emailAddress"`
}

type sendMailRequest struct {
	Message struct {
		Subject string `json:"subject"`
		Body    struct {
			ContentType string `json:"contentType"`
			Content     string `json:"content"`
		} `json:"body"`
		ToRecipients []mailRecipient `json:"toRecipients"`
	} `json:"message"`
	SaveToSentItems bool `json:"saveToSentItems"`
}

// SendMail sends an HTML message from the signed-in user's mailbox.
// Graph answers 202 Accepted on success.
func (c *Client) SendMail(ctx context.Context, cred *Credential, to, subject, html string) error {
	var payload sendMailRequest
	payload.Message.Subject = subject
	payload.Message.Body.ContentType = "HTML"
	payload.Message.Body.Content = html
	var r mailRecipient
	r.EmailAddress.Address = to
	payload.Message.ToRecipients = []mailRecipient{r}
	payload.SaveToSentItems = true

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal mail: %w", err)
	}

	u := c.baseURL + "/me/sendMail"
	res, err := c.Do(ctx, Request{Method: http.MethodPost, URL: u, Body: data, Token: cred.Token()}, cred.Refresher())
	if err != nil {
		return err
	}
	if res.StatusCode != http.StatusAccepted {
		return &StatusError{URL: u, Status: res.StatusCode, Body: truncate(string(res.Body), 300)}
	}
	return nil
}
