// Package channel defines the contract every delivery transport implements
// and the registry the delivery pipeline resolves transports from.
//
// A Channel receives one rendered Message per flushed batch and reports the
// outcome through its error: nil on success, an error wrapped with Permanent
// when the provider rejected the message irrecoverably, or any other error
// (optionally wrapped with Transient) when the attempt may succeed later.
//
//	reg, err := channel.NewRegistry(emailChannel, smsChannel)
//	if err != nil {
//	    return err
//	}
//
//	ch, err := reg.Get(channel.Email)
//	if err != nil {
//	    return err
//	}
//	if err := ch.Send(ctx, msg); channel.IsPermanent(err) {
//	    // do not retry
//	}
//
// Transports live in subpackages: email, sms, mobilepush, webpush and inapp.
package channel
