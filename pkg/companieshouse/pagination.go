package companieshouse

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	errs "chscraper/pkg/errors"
)

// CollectPages walks a paginated Data API endpoint and returns the full
// concatenation of items in arrival order.
//
// Termination, in priority order:
//  1. an empty items page stops immediately, regardless of any claimed
//     total (primary infinite-loop guard; the API sometimes reports a
//     wrong total_results);
//  2. a partial page (fewer items than requested) means the end of data;
//  3. the claimed total, when positive, has been collected;
//  4. the hard iteration ceiling, which is a distinct non-convergence
//     failure rather than a silent truncation.
func (c *Client) CollectPages(ctx context.Context, endpoint string) (*List, error) {
	collected := &List{}
	startIndex := 0

	for iteration := 0; iteration < MaxPaginationIterations; iteration++ {
		params := url.Values{}
		params.Set("items_per_page", strconv.Itoa(c.pageSize))
		params.Set("start_index", strconv.Itoa(startIndex))

		var page Page
		if err := c.GetJSON(ctx, endpoint, params, &page); err != nil {
			return nil, err
		}

		if len(page.Items) == 0 {
			c.logger.DebugWithFields("no more items", map[string]interface{}{
				"endpoint":    endpoint,
				"start_index": startIndex,
			})
			collected.TotalResults = len(collected.Items)
			return collected, nil
		}

		collected.Items = append(collected.Items, page.Items...)
		total := page.ClaimedTotal()

		c.logger.DebugWithFields("fetched page", map[string]interface{}{
			"endpoint":  endpoint,
			"items":     len(page.Items),
			"collected": len(collected.Items),
			"total":     total,
		})

		if len(page.Items) < c.pageSize {
			break
		}

		if total > 0 && len(collected.Items) >= total {
			break
		}

		startIndex += c.pageSize

		if iteration == MaxPaginationIterations-1 {
			c.logger.ErrorWithFields("pagination did not converge", map[string]interface{}{
				"endpoint":   endpoint,
				"iterations": MaxPaginationIterations,
				"collected":  len(collected.Items),
			})
			return nil, errs.New(errs.ErrorTypePagination,
				fmt.Sprintf("pagination did not converge after %d iterations", MaxPaginationIterations), 0)
		}
	}

	collected.TotalResults = len(collected.Items)
	return collected, nil
}
