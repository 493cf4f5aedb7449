// Package email delivers digests by email through Postmark, Amazon SES or,
// in development, a directory on disk.
//
// Provider failures are classified for the scheduler: rejected recipients,
// unverified senders and bad credentials are permanent, everything else is
// retried.
//
//	sender, err := email.NewSender(ctx, cfg, awsCfg)
//	if err != nil {
//	    return err
//	}
//	ch := email.NewChannel(sender)
package email
