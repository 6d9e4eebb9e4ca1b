// Command heicrop converts HEIC/HEIF photos to JPEG and crops them.
//
// "heicrop convert" and "heicrop crop" run one image through the workflow in
// a single invocation. "heicrop session" starts a background session and
// drives it one step at a time: submit, adjust the crop, apply, download.
package main
