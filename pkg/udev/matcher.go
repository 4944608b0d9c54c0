/*
Copyright 2026 Flant JSC

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package udev

// Matcher selects the uevents a Monitor delivers.
type Matcher interface {
	Match(event *UEvent) bool
}

// MatcherFunc adapts a function to Matcher.
type MatcherFunc func(event *UEvent) bool

func (f MatcherFunc) Match(event *UEvent) bool {
	return f(event)
}

// SubsystemMatcher matches events by subsystem.
type SubsystemMatcher struct {
	Subsystem string
}

func (m *SubsystemMatcher) Match(event *UEvent) bool {
	return event.Subsystem() == m.Subsystem
}

// SubsystemDevTypeMatcher matches events by subsystem and device type.
type SubsystemDevTypeMatcher struct {
	Subsystem string
	DevType   string
}

func (m *SubsystemDevTypeMatcher) Match(event *UEvent) bool {
	return event.Subsystem() == m.Subsystem && event.DevType() == m.DevType
}

type AndMatcher struct {
	Matchers []Matcher
}

func (m *AndMatcher) Match(event *UEvent) bool {
	for _, matcher := range m.Matchers {
		if !matcher.Match(event) {
			return false
		}
	}
	return true
}

type OrMatcher struct {
	Matchers []Matcher
}

func (m *OrMatcher) Match(event *UEvent) bool {
	for _, matcher := range m.Matchers {
		if matcher.Match(event) {
			return true
		}
	}
	return false
}

type AllMatcher struct{}

func (m *AllMatcher) Match(_ *UEvent) bool {
	return true
}

// FilterMatcher evaluates a Filter against the device an event describes.
// Property criteria see the event environment.
type FilterMatcher struct {
	Udev   *Udev
	Filter *Filter
}

func (m *FilterMatcher) Match(event *UEvent) bool {
	if m.Filter == nil || m.Filter.Len() == 0 {
		return true
	}
	if m.Filter.hasPositive(FilterSubsystem) && !m.Filter.MatchSubsystem(event.Subsystem()) {
		return false
	}

	accessor := &eventAccessor{udev: m.Udev, event: event}
	return m.Filter.Match(accessor, m.Udev.SyspathFromUEvent(event))
}

// eventAccessor resolves the syspath of one event. Syspaths outside the
// subsystem table take the subsystem reported by the kernel.
type eventAccessor struct {
	udev  *Udev
	event *UEvent
}

func (a *eventAccessor) SubsystemBySyspath(syspath string) string {
	subsystem := a.udev.SubsystemBySyspath(syspath)
	if subsystem == UnknownSubsystem && a.event.Subsystem() != "" &&
		a.udev.subsystemConfig(syspath) == nil {
		return a.event.Subsystem()
	}
	return subsystem
}

func (a *eventAccessor) SysnameBySyspath(syspath string) string {
	return a.udev.SysnameBySyspath(syspath)
}

func (a *eventAccessor) NewDevice(_ string) (*Device, error) {
	return a.udev.DeviceFromUEvent(a.event)
}
