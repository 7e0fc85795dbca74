// Package mynest is a client for the MyNest download service.
//
// MyNest queues downloads submitted over its REST API. mediasniff submits
// the media URLs it finds, lists the tasks it created, and checks the
// connection with the service's health endpoint.
package mynest
