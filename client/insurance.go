package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"

	"go.pilab.hu/portal/api"
	"go.pilab.hu/portal/domain"
)

// PoliciesByCategory fetches the purchasable catalog for category.
func (c *Client) PoliciesByCategory(ctx context.Context, category domain.Category) ([]domain.InsurancePolicy, error) {
	var out domain.PoliciesResponse
	err := c.do(ctx, request{
		op:     "catalog",
		method: http.MethodGet,
		path:   api.PathCatalog,
		query:  url.Values{api.CatalogTypeParam: {category.APIType()}},
		bearer: true,
		out:    &out,
	})
	return out.Policies, err
}

// GenerateQuote prices a policy for the given answers.
func (c *Client) GenerateQuote(ctx context.Context, req domain.QuoteRequest) (*domain.Quotation, error) {
	body, err := jsonBody(req)
	if err != nil {
		return nil, err
	}
	var q domain.Quotation
	if err := c.do(ctx, request{
		op:          "generate_quote",
		method:      http.MethodPost,
		path:        api.PathGenerateQuote,
		body:        body,
		contentType: "application/json",
		bearer:      true,
		out:         &q,
	}); err != nil {
		return nil, err
	}
	return &q, nil
}

// UploadDocument posts a supporting document for a quotation as
// multipart/form-data with fields userQuotePolicyId and file.
func (c *Client) UploadDocument(ctx context.Context, quoteID, filename, contentType string, r io.Reader) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField(api.FieldQuoteID, quoteID); err != nil {
		return fmt.Errorf("write upload form: %w", err)
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, api.FieldFile, filename))
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	if err != nil {
		return fmt.Errorf("write upload form: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return fmt.Errorf("read upload document: %w", err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("write upload form: %w", err)
	}

	return c.do(ctx, request{
		op:          "upload",
		method:      http.MethodPost,
		path:        api.PathUpload,
		body:        &buf,
		contentType: mw.FormDataContentType(),
		bearer:      true,
	})
}

// Pay finalizes a quotation and returns the issued policy id.
func (c *Client) Pay(ctx context.Context, quoteID string) (string, error) {
	body, err := jsonBody(domain.PaymentRequest{UserQuotePolicyID: quoteID})
	if err != nil {
		return "", err
	}
	var out domain.ActivatePolicyResponse
	err = c.do(ctx, request{
		op:          "pay",
		method:      http.MethodPost,
		path:        api.PathPayment,
		body:        body,
		contentType: "application/json",
		bearer:      true,
		out:         &out,
	})
	return out.UserPolicyID, err
}
