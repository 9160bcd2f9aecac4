// Package export prerenders pages and writes them to an artifact store.
//
// Every page is rendered with render.ModeSinglePass, so each boundary is
// waited for and the output holds content, never fallbacks. The exporter
// writes one index.html per page path plus a manifest.json listing every
// artifact with its size and SHA-256.
//
// Two stores are provided: DirStore writes below a local directory and
// S3Store puts objects into a bucket with aws-sdk-go-v2. OpenStore picks
// one from a target string such as "./dist" or "s3://bucket/prefix".
package export
