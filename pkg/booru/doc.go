// Package booru talks to a booru-style image gallery over HTTP.
//
// It covers the three request kinds a crawl needs:
//   - listing pages, parsed into absolute post URLs (ListPosts)
//   - post pages, parsed into the full-size image URL (ResolveImage)
//   - image bodies, opened for streaming (Open)
//
// Every request carries the same Session: the cf_clearance, user_id and
// pass_hash cookies plus a fixed set of browser headers.
//
// Example usage:
//
//	session := booru.NewSession(cfg.Session, searchURL)
//	client := booru.NewClient(session, booru.Options{}, log)
//
//	res, err := client.ListPosts(ctx, booru.PageURL(searchURL, 0, 20))
//	if err != nil {
//	    return err
//	}
//	switch res.Status {
//	case booru.ListForbidden:
//	    // cookies expired
//	case booru.ListEmpty:
//	    // past the last page
//	}
package booru
