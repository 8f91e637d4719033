// Package sender holds the four delivery mechanisms behind the local
// dispatcher.
//
//   - RawSender writes printer-control text (ZPL) to a local printer's raw
//     channel, bypassing the driver.
//   - SocketSender streams the same text to a network printer's TCP port
//     (9100-style) without reading a reply.
//   - ImageSender decodes a bitmap, lays it out on a single page and submits
//     that page through the document pipeline.
//   - DocumentSender persists a PDF to a scratch file and hands it to the
//     first available renderer in a silent viewer, full reader, OS handler
//     fallback chain.
//
// Every failure is returned as an error wrapping printjob.ErrDelivery. The
// senders never retry.
package sender
