// Package awsconfig builds aws.Config values for the SES, SNS and S3 clients
// and inspects the API errors they return.
package awsconfig
