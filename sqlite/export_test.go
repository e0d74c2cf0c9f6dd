package sqlite

import "context"

// ExportExec runs a raw statement against the client's database.
func ExportExec(ctx context.Context, c *Client, statement string) error {
	_, err := c.db.ExecContext(ctx, statement)
	return err
}

// ExportQueryInt scans a single integer result.
func ExportQueryInt(ctx context.Context, c *Client, query string, dest *int) error {
	return c.db.QueryRowContext(ctx, query).Scan(dest)
}
