package companieshouse

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	errs "chscraper/pkg/errors"
	"chscraper/pkg/validate"
)

// GetCompanyProfile fetches a company's profile. The raw document is
// returned so it can be persisted verbatim alongside the downloads.
func (c *Client) GetCompanyProfile(ctx context.Context, companyNumber string) (json.RawMessage, error) {
	companyNumber, err := validate.CompanyNumber(companyNumber)
	if err != nil {
		return nil, err
	}

	c.logger.InfoWithFields("fetching company profile", map[string]interface{}{
		"company_number": companyNumber,
	})

	var profile json.RawMessage
	if err := c.GetJSON(ctx, CompanyProfilePath(companyNumber), nil, &profile); err != nil {
		return nil, err
	}
	return profile, nil
}

// GetOfficers fetches all company officers across every page
func (c *Client) GetOfficers(ctx context.Context, companyNumber string) (*List, error) {
	return c.collectFor(ctx, companyNumber, "officers", OfficersPath)
}

// GetFilingHistory fetches the complete filing history across every page.
// Filing items may carry links.document_metadata for downloadable documents.
func (c *Client) GetFilingHistory(ctx context.Context, companyNumber string) (*List, error) {
	return c.collectFor(ctx, companyNumber, "filing history", FilingHistoryPath)
}

// GetCharges fetches all company charges across every page
func (c *Client) GetCharges(ctx context.Context, companyNumber string) (*List, error) {
	return c.collectFor(ctx, companyNumber, "charges", ChargesPath)
}

// GetPSC fetches all persons with significant control across every page
func (c *Client) GetPSC(ctx context.Context, companyNumber string) (*List, error) {
	return c.collectFor(ctx, companyNumber, "PSC", PSCPath)
}

// GetUKEstablishments fetches UK establishments for an overseas company.
// A 404 means the company is not an overseas company and yields an empty
// list rather than an error.
func (c *Client) GetUKEstablishments(ctx context.Context, companyNumber string) (*List, error) {
	list, err := c.collectFor(ctx, companyNumber, "UK establishments", UKEstablishmentsPath)
	if err != nil {
		if isNotFound(err) {
			return &List{}, nil
		}
		return nil, err
	}
	return list, nil
}

// GetInsolvency fetches insolvency information. A 404 means the company has
// no insolvency records and yields nil rather than an error.
func (c *Client) GetInsolvency(ctx context.Context, companyNumber string) (json.RawMessage, error) {
	return c.singleObjectFor(ctx, companyNumber, "insolvency", InsolvencyPath)
}

// GetExemptions fetches company exemptions. A 404 means the company has no
// exemptions and yields nil rather than an error.
func (c *Client) GetExemptions(ctx context.Context, companyNumber string) (json.RawMessage, error) {
	return c.singleObjectFor(ctx, companyNumber, "exemptions", ExemptionsPath)
}

func (c *Client) collectFor(ctx context.Context, companyNumber, name string, path func(string) string) (*List, error) {
	companyNumber, err := validate.CompanyNumber(companyNumber)
	if err != nil {
		return nil, err
	}

	c.logger.InfoWithFields(fmt.Sprintf("fetching %s", name), map[string]interface{}{
		"company_number": companyNumber,
	})

	return c.CollectPages(ctx, path(companyNumber))
}

func (c *Client) singleObjectFor(ctx context.Context, companyNumber, name string, path func(string) string) (json.RawMessage, error) {
	companyNumber, err := validate.CompanyNumber(companyNumber)
	if err != nil {
		return nil, err
	}

	c.logger.InfoWithFields(fmt.Sprintf("fetching %s", name), map[string]interface{}{
		"company_number": companyNumber,
	})

	var data json.RawMessage
	if err := c.GetJSON(ctx, path(companyNumber), nil, &data); err != nil {
		if isNotFound(err) {
			c.logger.InfoWithFields(fmt.Sprintf("no %s data", name), map[string]interface{}{
				"company_number": companyNumber,
			})
			return nil, nil
		}
		return nil, err
	}
	return data, nil
}

// GetAllData fetches every data endpoint for a company. Endpoint failures
// are recorded under Errors so one failing endpoint never hides the rest;
// only an invalid company number fails the whole call.
func (c *Client) GetAllData(ctx context.Context, companyNumber string) (*CompanyData, error) {
	companyNumber, err := validate.CompanyNumber(companyNumber)
	if err != nil {
		return nil, err
	}

	c.logger.InfoWithFields("fetching all company data", map[string]interface{}{
		"company_number": companyNumber,
	})

	data := &CompanyData{
		CompanyNumber: companyNumber,
		Errors:        make(map[string]string),
	}

	record := func(name string, err error) {
		if err != nil {
			data.Errors[name] = err.Error()
			c.logger.WarnWithFields("failed to fetch endpoint", map[string]interface{}{
				"company_number": companyNumber,
				"endpoint":       name,
				"error":          err.Error(),
			})
		}
	}

	data.Profile, err = c.GetCompanyProfile(ctx, companyNumber)
	record("profile", err)

	data.Officers, err = c.GetOfficers(ctx, companyNumber)
	record("officers", err)

	data.FilingHistory, err = c.GetFilingHistory(ctx, companyNumber)
	record("filing_history", err)

	data.Charges, err = c.GetCharges(ctx, companyNumber)
	record("charges", err)

	data.Insolvency, err = c.GetInsolvency(ctx, companyNumber)
	record("insolvency", err)

	data.PSC, err = c.GetPSC(ctx, companyNumber)
	record("psc", err)

	data.UKEstablishments, err = c.GetUKEstablishments(ctx, companyNumber)
	record("uk_establishments", err)

	data.Exemptions, err = c.GetExemptions(ctx, companyNumber)
	record("exemptions", err)

	c.logger.InfoWithFields("completed company data fetch", map[string]interface{}{
		"company_number": companyNumber,
		"failed":         len(data.Errors),
	})

	return data, nil
}

func isNotFound(err error) bool {
	var apiErr *errs.Error
	return errors.As(err, &apiErr) && apiErr.Type == errs.ErrorTypeNotFound
}
