// Package sms delivers digests as text messages through Amazon SNS.
package sms
