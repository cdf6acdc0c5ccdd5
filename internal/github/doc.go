// Package github publishes a review to GitHub.
//
// Two channels are supported. [Client.PostReview] posts the review comment and
// inline annotations as a pull-request review through the REST API, using the
// GITHUB_TOKEN environment variable. [Command] renders an annotation as an
// Actions workflow command, which the runner surfaces without any API access.
//
// GitHub accepts at most [MaxAnnotations] annotations per request and at most
// [MaxMessageLength] characters per message; [Cap] and [Truncate] enforce both.
package github
