package gmail

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/apautomationai/sledge-ai-sub001/pkg/mailprovider"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// Adapter implements mailprovider.Provider on top of the Gmail API.
type Adapter struct {
	clientID     string
	clientSecret string
}

func NewAdapter(clientID, clientSecret string) *Adapter {
	return &Adapter{
		clientID:     clientID,
		clientSecret: clientSecret,
	}
}

func (a *Adapter) Name() string {
	return "gmail"
}

// service creates a Gmail client bound to the given access token. Token
// refresh is handled by the sync engine, so the token source is static.
func (a *Adapter) service(ctx context.Context, accessToken string) (*gmail.Service, error) {
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"})
	srv, err := gmail.NewService(ctx, option.WithTokenSource(src))
	if err != nil {
		return nil, fmt.Errorf("unable to create Gmail service: %w", err)
	}
	return srv, nil
}

func (a *Adapter) ListMessages(ctx context.Context, accessToken string, filter mailprovider.ListFilter) ([]mailprovider.MessageRef, error) {
	srv, err := a.service(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	q := fmt.Sprintf("after:%d has:attachment", filter.Since.Unix())
	if filter.Keyword != "" {
		q += " " + filter.Keyword
	}

	user := "me"
	refs := make([]mailprovider.MessageRef, 0)
	pageToken := ""
	for {
		call := srv.Users.Messages.List(user).Q(q).MaxResults(500)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		resp, err := call.Context(ctx).Do()
		if err != nil {
			return nil, wrapGoogleError("list messages", err)
		}
		for _, msg := range resp.Messages {
			refs = append(refs, mailprovider.MessageRef{ID: msg.Id})
		}
		pageToken = resp.NextPageToken
		if pageToken == "" {
			break
		}
	}

	return refs, nil
}

func (a *Adapter) GetMessage(ctx context.Context, accessToken, messageID string) (*mailprovider.Message, error) {
	srv, err := a.service(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	msg, err := srv.Users.Messages.Get("me", messageID).Format("full").Context(ctx).Do()
	if err != nil {
		return nil, wrapGoogleError("get message", err)
	}

	return convertMessage(msg), nil
}

func (a *Adapter) GetAttachmentBytes(ctx context.Context, accessToken, messageID, partID string) ([]byte, error) {
	srv, err := a.service(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	part, err := srv.Users.Messages.Attachments.Get("me", messageID, partID).Context(ctx).Do()
	if err != nil {
		return nil, wrapGoogleError("get attachment", err)
	}

	data, err := base64.URLEncoding.DecodeString(part.Data)
	if err != nil {
		return nil, &mailprovider.Error{
			Kind:    mailprovider.KindUnknown,
			Message: "unable to decode attachment data",
			Err:     err,
		}
	}
	return data, nil
}

func (a *Adapter) MarkRead(ctx context.Context, accessToken, messageID string) error {
	srv, err := a.service(ctx, accessToken)
	if err != nil {
		return err
	}

	modifyReq := &gmail.ModifyMessageRequest{
		RemoveLabelIds: []string{"UNREAD"},
	}
	if _, err := srv.Users.Messages.Modify("me", messageID, modifyReq).Context(ctx).Do(); err != nil {
		return wrapGoogleError("mark read", err)
	}
	return nil
}

func (a *Adapter) RefreshToken(ctx context.Context, refreshToken string) (*mailprovider.TokenSet, error) {
	conf := &oauth2.Config{
		ClientID:     a.clientID,
		ClientSecret: a.clientSecret,
		Endpoint:     google.Endpoint,
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

// wrapGoogleError normalizes a Gmail API failure into the tagged error shape.
func wrapGoogleError(op string, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		code := ""
		if len(gerr.Errors) > 0 {
			code = gerr.Errors[0].Reason
		}
		return mailprovider.NewError(gerr.Code, code, fmt.Sprintf("%s: %s", op, gerr.Message), err)
	}
	return &mailprovider.Error{
		Kind:    mailprovider.KindUnknown,
		Message: fmt.Sprintf("%s failed", op),
		Err:     err,
	}
}

// wrapRetrieveError normalizes an oauth2 token endpoint failure.
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

func convertMessage(msg *gmail.Message) *mailprovider.Message {
	out := &mailprovider.Message{
		ID:         msg.Id,
		Subject:    getHeader(msg.Payload, "Subject"),
		Sender:     getHeader(msg.Payload, "From"),
		Receiver:   getHeader(msg.Payload, "To"),
		ReceivedAt: time.Unix(msg.InternalDate/1000, 0),
	}

	var findAttachments func(parts []*gmail.MessagePart)
	findAttachments = func(parts []*gmail.MessagePart) {
		for _, part := range parts {
			if part.Filename != "" && part.Body != nil && part.Body.AttachmentId != "" {
				out.Attachments = append(out.Attachments, mailprovider.AttachmentPart{
					PartID:   part.Body.AttachmentId,
					Filename: part.Filename,
					MimeType: part.MimeType,
					Size:     part.Body.Size,
				})
			}
			if len(part.Parts) > 0 {
				findAttachments(part.Parts)
			}
		}
	}
	if msg.Payload != nil {
		findAttachments(msg.Payload.Parts)
	}

	return out
}

func getHeader(payload *gmail.MessagePart, name string) string {
	if payload == nil {
		return ""
	}
	for _, header := range payload.Headers {
		if header.Name == name {
			return header.Value
		}
	}
	return ""
}
