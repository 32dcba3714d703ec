/*
Package client is a thin HTTP/JSON client for a berth server, used by the
berth CLI.

Every call carries a 10 second timeout. Non-2xx answers come back as
*APIError, which unwraps to storage.ErrNotFound for 404 and to
scheduler.ErrNoCapacity for 503:

	c, err := client.NewClient("127.0.0.1:7070")
	if err != nil {
		return err
	}
	defer c.Close()

	decision, err := c.Place("perform", false)
	if errors.Is(err, scheduler.ErrNoCapacity) {
		// add nodes or raise the policy ceiling
	}
*/
package client
