// Package webaction implements the web route: anonymous and authenticated
// HTTP invocation of exported actions with media-typed result rendering.
//
// A request travels a fixed pipeline: decode the path and entity, resolve
// the owner identity and the package/action records, check the export and
// auth annotations, check the owner's throttles, merge parameters under the
// precedence bound < query < body < reserved, invoke with a bounded wait,
// and transcode the activation result per the URL's media extension.
// Any stage can short-circuit to a rejection; rejections render as a JSON
// envelope with the transaction id, while .http results pass through with
// the action-authored status, headers, and body.
package webaction
