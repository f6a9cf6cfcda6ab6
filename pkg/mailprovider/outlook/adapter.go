package outlook

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/apautomationai/sledge-ai-sub001/pkg/mailprovider"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/microsoft"
)

const graphBaseURL = "https://graph.microsoft.com/v1.0"

// Adapter implements mailprovider.Provider on top of the Microsoft Graph
// mail endpoints. Graph has no Go SDK in our stack, so calls go through a
// plain HTTP client with the access token attached per request.
type Adapter struct {
	clientID     string
	clientSecret string
	httpClient   *http.Client
	baseURL      string
}

func NewAdapter(clientID, clientSecret string) *Adapter {
	return &Adapter{
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient:   http.DefaultClient,
		baseURL:      graphBaseURL,
	}
}

func (a *Adapter) Name() string {
	return "outlook"
}

type graphMessage struct {
	ID               string `json:"id"`
	Subject          string `json:"subject"`
	ReceivedDateTime string `json:"receivedDateTime"`
	From             struct {
		EmailAddress struct {
			Address string `json:"address"`
		} `json:"emailAddress"`
	} `json:"from"`
	ToRecipients []struct {
		EmailAddress struct {
			Address string `json:"address"`
		} `json:"emailAddress"`
	} `json:"toRecipients"`
}

type graphMessageList struct {
	Value    []graphMessage `json:"value"`
	NextLink string         `json:"@odata.nextLink"`
}

type graphAttachment struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	ContentType  string `json:"contentType"`
	Size         int64  `json:"size"`
	ContentBytes string `json:"contentBytes"`
}

type graphAttachmentList struct {
	Value []graphAttachment `json:"value"`
}

type graphError struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (a *Adapter) ListMessages(ctx context.Context, accessToken string, filter mailprovider.ListFilter) ([]mailprovider.MessageRef, error) {
	// Graph cannot match the body in $filter; the subject match keeps the
	// keyword heuristic on parity with the Gmail adapter's query.
	q := fmt.Sprintf("hasAttachments eq true and receivedDateTime ge %s", filter.Since.UTC().Format(time.RFC3339))
	if filter.Keyword != "" {
		q += fmt.Sprintf(" and contains(subject, '%s')", filter.Keyword)
	}

	endpoint := fmt.Sprintf("%s/me/messages?$filter=%s&$select=id,receivedDateTime&$top=100", a.baseURL, url.QueryEscape(q))

	refs := make([]mailprovider.MessageRef, 0)
	for endpoint != "" {
		var list graphMessageList
		if err := a.doJSON(ctx, http.MethodGet, endpoint, accessToken, nil, &list); err != nil {
			return nil, err
		}
		for _, msg := range list.Value {
			received, _ := time.Parse(time.RFC3339, msg.ReceivedDateTime)
			refs = append(refs, mailprovider.MessageRef{ID: msg.ID, ReceivedAt: received})
		}
		endpoint = list.NextLink
	}

	return refs, nil
}

func (a *Adapter) GetMessage(ctx context.Context, accessToken, messageID string) (*mailprovider.Message, error) {
	endpoint := fmt.Sprintf("%s/me/messages/%s?$select=id,subject,from,toRecipients,receivedDateTime", a.baseURL, url.PathEscape(messageID))

	var msg graphMessage
	if err := a.doJSON(ctx, http.MethodGet, endpoint, accessToken, nil, &msg); err != nil {
		return nil, err
	}

	received, _ := time.Parse(time.RFC3339, msg.ReceivedDateTime)
	out := &mailprovider.Message{
		ID:         msg.ID,
		Subject:    msg.Subject,
		Sender:     msg.From.EmailAddress.Address,
		ReceivedAt: received,
	}
	if len(msg.ToRecipients) > 0 {
		out.Receiver = msg.ToRecipients[0].EmailAddress.Address
	}

	// Attachment metadata comes from a separate collection endpoint.
	attEndpoint := fmt.Sprintf("%s/me/messages/%s/attachments?$select=id,name,contentType,size", a.baseURL, url.PathEscape(messageID))
	var atts graphAttachmentList
	if err := a.doJSON(ctx, http.MethodGet, attEndpoint, accessToken, nil, &atts); err != nil {
		return nil, err
	}
	for _, att := range atts.Value {
		if att.Name == "" {
			continue
		}
		out.Attachments = append(out.Attachments, mailprovider.AttachmentPart{
			PartID:   att.ID,
			Filename: att.Name,
			MimeType: att.ContentType,
			Size:     att.Size,
		})
	}

	return out, nil
}

func (a *Adapter) GetAttachmentBytes(ctx context.Context, accessToken, messageID, partID string) ([]byte, error) {
	endpoint := fmt.Sprintf("%s/me/messages/%s/attachments/%s", a.baseURL, url.PathEscape(messageID), url.PathEscape(partID))

	var att graphAttachment
	if err := a.doJSON(ctx, http.MethodGet, endpoint, accessToken, nil, &att); err != nil {
		return nil, err
	}

	data, err := base64.StdEncoding.DecodeString(att.ContentBytes)
	if err != nil {
		return nil, &mailprovider.Error{
			Kind:    mailprovider.KindUnknown,
			Message: "unable to decode attachment content",
			Err:     err,
		}
	}
	return data, nil
}

func (a *Adapter) MarkRead(ctx context.Context, accessToken, messageID string) error {
	endpoint := fmt.Sprintf("%s/me/messages/%s", a.baseURL, url.PathEscape(messageID))
	body := map[string]bool{"isRead": true}
	return a.doJSON(ctx, http.MethodPatch, endpoint, accessToken, body, nil)
}

func (a *Adapter) RefreshToken(ctx context.Context, refreshToken string) (*mailprovider.TokenSet, error) {
	conf := &oauth2.Config{
		ClientID:     a.clientID,
		ClientSecret: a.clientSecret,
		Endpoint:     microsoft.AzureADEndpoint("common"),
		Scopes:       []string{"offline_access", "Mail.Read"},
	}

	token, err := conf.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return nil, wrapRetrieveError(err)
	}

	ts := &mailprovider.TokenSet{
		AccessToken:  token.AccessToken,
		RefreshToken: refreshToken,
		Expiry:       token.Expiry,
	}
	if token.RefreshToken != "" {
		ts.RefreshToken = token.RefreshToken
	}
	return ts, nil
}

// doJSON performs one Graph request and decodes the response into out.
// Non-2xx responses are normalized into the tagged error shape.
func (a *Adapter) doJSON(ctx context.Context, method, endpoint, accessToken string, body, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return &mailprovider.Error{
			Kind:    mailprovider.KindUnknown,
			Message: "graph request failed",
			Err:     err,
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		var gerr graphError
		_ = json.Unmarshal(raw, &gerr)
		message := gerr.Error.Message
		if message == "" {
			message = fmt.Sprintf("graph request returned status %d", resp.StatusCode)
		}
		return mailprovider.NewError(resp.StatusCode, gerr.Error.Code, message, nil)
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func wrapRetrieveError(err error) error {
	var rerr *oauth2.RetrieveError
	if errors.As(err, &rerr) {
		status := 0
		if rerr.Response != nil {
			status = rerr.Response.StatusCode
		}
		e := mailprovider.NewError(status, rerr.ErrorCode, rerr.ErrorDescription, err)
		if rerr.ErrorCode == "invalid_grant" || rerr.ErrorCode == "invalid_token" {
			e.Kind = mailprovider.KindAuthExpired
		}
		if e.Message == "" {
			e.Message = "token refresh rejected"
		}
		return e
	}
	return &mailprovider.Error{
		Kind:    mailprovider.KindUnknown,
		Message: "token refresh failed",
		Err:     err,
	}
}
