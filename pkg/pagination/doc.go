// Package pagination fetches page after page of one resource.
//
// Pages are requested strictly in order: page k+1 is only requested once the
// response for page k is known. Each page goes through the executor's own
// retry loop; there is no retry across pages.
//
// Example usage:
//
//	p := pagination.New(client, pagination.Options{PageSize: 50})
//	pages, err := p.Fetch(ctx, api.NewRequest("/orders"))
//	items := pagination.CollectItems(pages)
//
// By default the paginator keeps going while a page succeeds and returns at
// least PageSize items, either as a JSON array or as an object with an
// "items" array. Servers that signal the end differently can supply their
// own ContinueFunc.
package pagination
